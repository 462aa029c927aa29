package classify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a prediction call so a stalled service surfaces as a transport error
	DefaultTimeout = 30 * time.Second

	predictPath     = "/predict"
	maxResponseSize = 1 << 20
)

// Gateway calls the remote prediction service's POST /predict endpoint.
// It is stateless: concurrent calls are independent and identical images are evaluated twice.
type Gateway struct {
	endpoint string
	client   *http.Client
}

// NewGateway creates a Gateway for the service at baseURL
func NewGateway(baseURL string, timeout time.Duration) (*Gateway, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewGatewayWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewGatewayWithClient creates a Gateway using a caller-supplied HTTP client
func NewGatewayWithClient(baseURL string, client *http.Client) (*Gateway, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing prediction url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("prediction url must be http or https: %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("prediction url has no host: %q", baseURL)
	}

	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, predictPath) {
		path += predictPath
	}
	u.Path = path
	u.RawPath = ""

	return &Gateway{
		endpoint: u.String(),
		client:   client,
	}, nil
}

// Endpoint returns the full URL the gateway posts to
func (g *Gateway) Endpoint() string {
	return g.endpoint
}

// Classify posts the image and coordinates as multipart form data and decodes the prediction
func (g *Gateway) Classify(ctx context.Context, image []byte, contentType string, latitude, longitude float64) (*Prediction, error) {
	jpegData, err := NormalizeJPEG(image, contentType)
	if err != nil {
		return nil, &Error{Kind: KindInput, Err: err}
	}

	body, formContentType, err := encodeForm(jpegData, latitude, longitude)
	if err != nil {
		return nil, &Error{Kind: KindInput, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("reading response: %w", err)}
	}

	slog.Debug("Prediction service responded",
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"image_size", len(jpegData),
	)

	return decodePrediction(resp.StatusCode, respBody)
}

// Close is a no-op for the HTTP client
func (g *Gateway) Close() error {
	return nil
}

// encodeForm builds the multipart body with fields image, latitude and longitude
func encodeForm(jpegData []byte, latitude, longitude float64) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="image.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating image part: %w", err)
	}
	if _, err := part.Write(jpegData); err != nil {
		return nil, "", fmt.Errorf("writing image part: %w", err)
	}

	if err := writer.WriteField("latitude", formatCoordinate(latitude)); err != nil {
		return nil, "", fmt.Errorf("writing latitude: %w", err)
	}
	if err := writer.WriteField("longitude", formatCoordinate(longitude)); err != nil {
		return nil, "", fmt.Errorf("writing longitude: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
