package entities

import "time"

const DefaultPosition = "General"

type Candidate struct {
	CandidateID string
	Name        string
	Position    string
	ImageURL    string
	MirrorID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
