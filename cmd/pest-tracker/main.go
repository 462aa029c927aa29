package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/pest-tracker/internal/classify"
	"github.com/zombor/pest-tracker/internal/pest"
	"github.com/zombor/pest-tracker/internal/scan"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	dataDir := filepath.Join(xdg.DataHome, "pest-tracker")

	fs := ff.NewFlagSet("pest-tracker")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		storeDriver    = fs.StringLong("store-driver", "bolt", "Scan history backend: 'bolt' or 'sqlite'")
		dbPath         = fs.StringLong("db", filepath.Join(dataDir, "pest-tracker.db"), "Scan history database path")
		storagePath    = fs.StringLong("storage", filepath.Join(dataDir, "photos"), "Photo storage directory path")
		classifierType = fs.StringLong("classifier", "predict", "Classifier: 'predict', 'gemini' or 'ollama'")
		predictURL     = fs.StringLong("predict-url", "http://localhost:5000", "Base URL of the pest prediction service")
		predictTimeout = fs.DurationLong("predict-timeout", classify.DefaultTimeout, "Prediction request timeout")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		libraryPath    = fs.StringLong("library", "", "YAML file replacing the built-in pest library (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat      = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		_              = fs.StringLong("config", "", "Config file (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PEST_TRACKER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := setupLogging(*logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config{
		port:           *port,
		storeDriver:    *storeDriver,
		dbPath:         *dbPath,
		storagePath:    *storagePath,
		classifierType: *classifierType,
		predictURL:     *predictURL,
		predictTimeout: *predictTimeout,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		libraryPath:    *libraryPath,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		return fmt.Errorf("invalid log format %q (valid: text, json)", format)
	}
	return nil
}

func run(ctx context.Context, cfg config) error {
	// Load the pest library
	library := pest.DefaultLibrary()
	if cfg.libraryPath != "" {
		slog.Info("Loading pest library...", "path", cfg.libraryPath)
		lib, err := pest.LoadFile(cfg.libraryPath)
		if err != nil {
			return err
		}
		library = lib
	}

	// Initialize database
	slog.Info("Initializing database...", "driver", cfg.storeDriver, "path", cfg.dbPath)
	if cfg.storeDriver != "memory" {
		if err := os.MkdirAll(filepath.Dir(cfg.dbPath), 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	kv, err := scan.OpenKV(cfg.storeDriver, cfg.dbPath)
	if err != nil {
		return err
	}
	defer kv.Close()

	metrics, err := scan.NewMetrics()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	store := scan.NewStore(kv, scan.WithCorruptionHandler(func(err error) {
		slog.Warn("Scan history is corrupt, treating it as empty", "key", scan.CollectionKey, "error", err)
		metrics.ObserveCorruption(err)
	}))

	classifier, err := newClassifier(cfg, library.Labels())
	if err != nil {
		return err
	}
	defer classifier.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", cfg.storagePath)
	storage, err := scan.NewLocalStorage(cfg.storagePath)
	if err != nil {
		return err
	}

	service := scan.NewService(store, classifier, library, storage)
	server := scan.NewServer(service, library, metrics)

	addr := fmt.Sprintf(":%d", cfg.port)
	slog.Info("Server starting", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if err := server.Start(ctx, addr); err != nil {
		return err
	}

	slog.Info("Shutting down...")
	return nil
}

type config struct {
	port           int
	storeDriver    string
	dbPath         string
	storagePath    string
	classifierType string
	predictURL     string
	predictTimeout time.Duration
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	libraryPath    string
}

func newClassifier(cfg config, labels []string) (classify.Classifier, error) {
	switch cfg.classifierType {
	case "predict":
		slog.Info("Initializing prediction gateway...", "url", cfg.predictURL, "timeout", cfg.predictTimeout)
		return classify.NewGateway(cfg.predictURL, cfg.predictTimeout)
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini classifier...", "model", cfg.geminiModel)
		return classify.NewGemini(apiKey, cfg.geminiModel, labels)
	case "ollama":
		slog.Info("Initializing Ollama classifier...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return classify.NewOllama(cfg.ollamaURL, cfg.ollamaModel, labels)
	default:
		return nil, fmt.Errorf("invalid classifier type %q (valid: predict, gemini, ollama)", cfg.classifierType)
	}
}
