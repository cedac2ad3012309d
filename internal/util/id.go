package util

import "github.com/google/uuid"

// NewReportID generates the client-side identifier for a new report.
// Ids are random UUIDs and are never reused, even after deletion.
func NewReportID() string {
	return uuid.NewString()
}
