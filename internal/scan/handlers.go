package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/pest-tracker/internal/classify"
)

// maxUploadSize covers full-resolution phone photos
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP statuses.
// Service errors are the remote model's verdict (retrying the same photo won't help);
// upstream failures may succeed on retry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrLocationRequired), errors.Is(err, classify.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, classify.ErrService):
		return http.StatusUnprocessableEntity
	case errors.Is(err, classify.ErrHTTPStatus), errors.Is(err, classify.ErrTransport), errors.Is(err, classify.ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleListScans returns the history in storage order, optionally filtered by ?q=
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.History(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("Error listing scans", "error", err)
		writeError(w, statusFor(err), "Failed to load scans")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGroupedScans returns the history grouped by month
func (s *Server) handleGroupedScans(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.GroupedHistory(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("Error grouping scans", "error", err)
		writeError(w, statusFor(err), "Failed to load scans")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleCreateScan classifies an uploaded photo and records the result
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading image data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading image. Please try again.")
		return
	}

	latitude, longitude, err := formLocation(r, data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	record, err := s.service.Scan(r.Context(), header.Filename, data, uploadContentType(header.Header.Get("Content-Type"), header.Filename), latitude, longitude)
	s.metrics.ObserveScan(err)
	if err != nil {
		slog.Error("Error processing scan", "filename", header.Filename, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// formLocation reads the coordinates from the form, falling back to the photo's EXIF GPS block
func formLocation(r *http.Request, image []byte) (float64, float64, error) {
	latValue := strings.TrimSpace(r.FormValue("latitude"))
	lonValue := strings.TrimSpace(r.FormValue("longitude"))

	if latValue == "" && lonValue == "" {
		if lat, lon, ok := classify.ExtractGPS(image); ok {
			slog.Debug("Using EXIF location", "latitude", lat, "longitude", lon)
			return lat, lon, nil
		}
		return 0, 0, fmt.Errorf("%w: send latitude and longitude or a photo with GPS data", ErrLocationRequired)
	}

	lat, err := strconv.ParseFloat(latValue, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("%w: invalid latitude %q", ErrLocationRequired, latValue)
	}
	lon, err := strconv.ParseFloat(lonValue, 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: invalid longitude %q", ErrLocationRequired, lonValue)
	}
	return lat, lon, nil
}

// uploadContentType falls back to the file extension when the part has no type
func uploadContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleGetScan returns a single scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.Record(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "Scan not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleGetScanImage returns the photo for a scan
func (s *Server) handleGetScanImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.RecordImage(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			slog.Error("Error loading scan", "id", r.PathValue("id"), "error", err)
			writeError(w, statusFor(err), "Failed to load scan")
			return
		}
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteScan deletes a scan; unknown ids succeed
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("Error deleting scan", "id", r.PathValue("id"), "error", err)
		writeError(w, statusFor(err), "Failed to delete scan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearScans deletes the whole history
func (s *Server) handleClearScans(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context()); err != nil {
		slog.Error("Error clearing scans", "error", err)
		writeError(w, statusFor(err), "Failed to clear scans")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPests returns the reference library
func (s *Server) handleListPests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.Search(r.URL.Query().Get("q")))
}

// handleGetPest resolves a classification label; unknown labels get the placeholder profile
func (s *Server) handleGetPest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.Resolve(r.PathValue("label")))
}
