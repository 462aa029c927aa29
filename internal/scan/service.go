package scan

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/pest-tracker/internal/classify"
	"github.com/zombor/pest-tracker/internal/pest"
)

// IDGenerator generates unique IDs for scan records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates UUIDv7 ids, which sort by creation time
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}

// defaultTimeSource provides the current local time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs a scan from photo to history record
type Service struct {
	store       *Store
	classifier  classify.Classifier
	resolver    pest.Resolver
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(store *Store, classifier classify.Classifier, resolver pest.Resolver, storage Storage) *Service {
	return NewServiceWithDeps(store, classifier, resolver, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store *Store, classifier classify.Classifier, resolver pest.Resolver, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		classifier:  classifier,
		resolver:    resolver,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_ ")

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "scan"
	}
	if len(ext) < 2 || unsafeFilenameChars.MatchString(ext[1:]) {
		ext = ".jpg"
	}

	return base + ext
}

// Scan stores the photo, classifies it, and appends the resulting record to the history.
// The caller must already hold a location fix.
func (s *Service) Scan(ctx context.Context, filename string, data []byte, contentType string, latitude, longitude float64) (*ScanRecord, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	imageRef, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	prediction, err := s.classifier.Classify(ctx, data, contentType, latitude, longitude)
	if err != nil {
		slog.Error("Failed to classify image",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// no record will refer to the photo
		s.removeImage(imageRef)
		return nil, fmt.Errorf("classifying image: %w", err)
	}

	profile := s.resolver.Resolve(prediction.PredictedClass)
	record := ScanRecord{
		ID:        id,
		Result:    profile.Title,
		Date:      now.Format(DateLayout),
		Time:      now.Format(TimeLayout),
		Image:     imageRef,
		Latitude:  &latitude,
		Longitude: &longitude,
		Details:   profile,
	}

	if err := s.store.Append(ctx, record); err != nil {
		s.removeImage(imageRef)
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	slog.Info("Scan recorded", "id", id, "result", record.Result, "label", prediction.PredictedClass)
	return &record, nil
}

func (s *Service) removeImage(ref string) {
	if err := s.storage.Delete(ref); err != nil {
		slog.Warn("Failed to delete image", "image", ref, "error", err)
	}
}

// History returns the records matching query in storage order
func (s *Service) History(ctx context.Context, query string) ([]ScanRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return Search(records, query), nil
}

// GroupedHistory returns the records matching query grouped by month, most recent first
func (s *Service) GroupedHistory(ctx context.Context, query string) ([]PeriodGroup, error) {
	records, err := s.History(ctx, query)
	if err != nil {
		return nil, err
	}
	return GroupByPeriod(records), nil
}

// Record retrieves a single record by ID
func (s *Service) Record(ctx context.Context, id string) (*ScanRecord, error) {
	return s.store.Get(ctx, id)
}

// RecordImage returns the photo a record refers to
func (s *Service) RecordImage(ctx context.Context, id string) ([]byte, string, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := s.storage.Get(record.Image)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan image: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Delete removes a record. Its photo is left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, id)
}

// Clear removes every record
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
