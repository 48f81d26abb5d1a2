package entities

import "time"

// Ballot is a single cast vote. VoterID is unique across all ballots.
type Ballot struct {
	BallotID    string
	VoterID     string
	CandidateID string
	MirrorID    string
	CastAt      time.Time
}

type CandidateTally struct {
	CandidateID string
	Name        string
	Position    string
	ImageURL    string
	Votes       int64
}

type PositionTally struct {
	Position   string
	Candidates []CandidateTally
	TotalVotes int64
}

// Tally is the result view. Positions is populated for position grouping and
// Candidates for the flat candidate grouping.
type Tally struct {
	GroupBy    string
	Positions  []PositionTally
	Candidates []CandidateTally
	TotalVotes int64
}
