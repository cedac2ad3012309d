package search

import (
	"time"

	"lavoroonesto/api/internal/report"
)

// Record is the data we index for a report. Attachments and author details
// are deliberately excluded from the index.
type Record struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	CompanyName  string `json:"companyName"`
	Sector       string `json:"sector"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreatedAt    string `json:"createdAt"`
	SupportCount int    `json:"supportCount"`
}

// Query describes a report search request.
type Query struct {
	Text   string
	Sector string // empty = all sectors
	Limit  int
	Offset int
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector,omitempty"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// RecordFromReport projects a report into its indexable form.
func RecordFromReport(r report.Report) Record {
	b := r.Common()
	rec := Record{
		ID:           b.ID,
		Type:         string(r.Kind()),
		CompanyName:  b.CompanyName,
		Sector:       b.Sector,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
		SupportCount: b.SupportCount,
	}
	switch v := r.(type) {
	case *report.Experience:
		rec.Title = v.Title
		rec.Description = v.Description
	case *report.JobOffer:
		rec.Title = v.JobTitle
		rec.Description = v.Description
	}
	return rec
}
