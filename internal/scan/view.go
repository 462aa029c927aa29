package scan

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	periodLayout = "January 2006"

	// UnknownPeriodLabel groups records whose date cannot be parsed
	UnknownPeriodLabel = "Unknown"
)

// PeriodGroup is one calendar month of history
type PeriodGroup struct {
	Period time.Time    `json:"-"` // First day of the month; zero for the unknown group
	Label  string       `json:"period"`
	Scans  []ScanRecord `json:"scans"`
}

// PeriodLabel formats a month for display, e.g. "June 2024"
func PeriodLabel(t time.Time) string {
	return t.Format(periodLayout)
}

// GroupByPeriod partitions records by the month of their date, most recent month first.
// Records keep their relative order inside a group. Undated records come last.
func GroupByPeriod(records []ScanRecord) []PeriodGroup {
	groups := make([]PeriodGroup, 0)
	index := make(map[time.Time]int)
	unknown := -1

	for _, r := range records {
		period, ok := recordPeriod(r)
		if !ok {
			if unknown == -1 {
				unknown = len(groups)
				groups = append(groups, PeriodGroup{Label: UnknownPeriodLabel})
			}
			groups[unknown].Scans = append(groups[unknown].Scans, r)
			continue
		}

		i, seen := index[period]
		if !seen {
			i = len(groups)
			index[period] = i
			groups = append(groups, PeriodGroup{Period: period, Label: PeriodLabel(period)})
		}
		groups[i].Scans = append(groups[i].Scans, r)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Period, groups[j].Period
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	return groups
}

// recordPeriod returns the first day of the record's month
func recordPeriod(r ScanRecord) (time.Time, bool) {
	date := strings.TrimSpace(r.Date)
	// tolerate full timestamps by reading the date prefix
	if len(date) > len(DateLayout) {
		date = date[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), true
}

// Search returns the records whose result contains query, ignoring case.
// An empty query returns records as given.
func Search(records []ScanRecord, query string) []ScanRecord {
	if query == "" {
		return records
	}

	fold := cases.Fold()
	needle := fold.String(query)
	matches := make([]ScanRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(fold.String(r.Result), needle) {
			matches = append(matches, r)
		}
	}
	return matches
}
