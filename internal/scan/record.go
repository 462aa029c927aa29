package scan

import "github.com/zombor/pest-tracker/internal/pest"

// Display layouts for the separate date and time fields
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ScanRecord is one completed classification, persisted in the history.
// Records are never updated after they are appended.
type ScanRecord struct {
	ID        string       `json:"id"`
	Result    string       `json:"result"` // Title of the matched profile
	Date      string       `json:"date"`
	Time      string       `json:"time"`
	Image     string       `json:"image"` // file:// reference to the photo; the file itself is not owned
	Latitude  *float64     `json:"latitude"`
	Longitude *float64     `json:"longitude"`
	Details   pest.Profile `json:"details"` // Snapshot at capture time
}
