package classify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Prediction is the normalized answer of a classification backend
type Prediction struct {
	PredictedClass string `json:"predicted_class"`
}

// Classifier identifies the pest shown in an image taken at the given coordinates
type Classifier interface {
	// Classify sends one image for evaluation. Failures are returned as *Error.
	Classify(ctx context.Context, image []byte, contentType string, latitude, longitude float64) (*Prediction, error)
	// Close releases any resources held by the classifier
	Close() error
}

// ClassifyFile reads a local image reference (a path or file:// URI) and classifies it
func ClassifyFile(ctx context.Context, c Classifier, imageRef string, latitude, longitude float64) (*Prediction, error) {
	path, err := LocalPath(imageRef)
	if err != nil {
		return nil, &Error{Kind: KindInput, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindInput, Err: fmt.Errorf("reading file: %w", err)}
	}

	return c.Classify(ctx, data, http.DetectContentType(data), latitude, longitude)
}

// FileURI returns the file:// reference stored on scan records for a local path
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}

// LocalPath resolves a path or file:// URI to a filesystem path
func LocalPath(ref string) (string, error) {
	if !strings.HasPrefix(ref, "file:") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing image reference: %w", err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("image reference has no path: %s", ref)
	}
	return u.Path, nil
}
