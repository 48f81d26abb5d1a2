package entities

import "time"

// Student is an allow-list entry. A Voter can only be created for an email
// that has a Student record.
type Student struct {
	StudentID     string
	Email         string
	StudentNumber string
	Name          string
	Department    string
	IsRegistered  bool
	MirrorID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BulkImportError identifies a failed row by its email (or row number when
// the email itself is missing).
type BulkImportError struct {
	Email string
	Row   int
	Error string
}

type BulkImportResult struct {
	Added   int
	Skipped int
	Errors  []BulkImportError
}
