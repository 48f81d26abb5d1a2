package http

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VoterResponse struct {
	VoterID   string `json:"voter_id"`
	Email     string `json:"email"`
	HasVoted  bool   `json:"has_voted"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

type RegisterResponse struct {
	Message string        `json:"message"`
	Voter   VoterResponse `json:"voter"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	Voter     VoterResponse `json:"voter"`
	Promoted  bool          `json:"promoted"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type SessionResponse struct {
	VoterID  string `json:"voter_id"`
	Email    string `json:"email"`
	HasVoted bool   `json:"has_voted"`
	IsAdmin  bool   `json:"is_admin"`
}

type CandidateResponse struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	ImageURL    string `json:"image_url,omitempty"`
}

type CandidateListResponse struct {
	Items []CandidateResponse `json:"items"`
}

type AddCandidateRequest struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type SubmitVoteRequest struct {
	CandidateName string `json:"candidate_name"`
	Position      string `json:"position,omitempty"`
}

type SubmitVoteResponse struct {
	Message   string            `json:"message"`
	BallotID  string            `json:"ballot_id"`
	Candidate CandidateResponse `json:"candidate"`
	CastAt    string            `json:"cast_at"`
}

type CandidateTallyResponse struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	ImageURL string `json:"image_url,omitempty"`
	Votes    int64  `json:"votes"`
}

type PositionTallyResponse struct {
	Position   string                   `json:"position"`
	TotalVotes int64                    `json:"total_votes"`
	Candidates []CandidateTallyResponse `json:"candidates"`
}

type ResultsResponse struct {
	GroupBy    string                   `json:"group_by"`
	TotalVotes int64                    `json:"total_votes"`
	Positions  []PositionTallyResponse  `json:"positions,omitempty"`
	Candidates []CandidateTallyResponse `json:"candidates,omitempty"`
}

type VoteCountsResponse struct {
	Counts      map[string]int64 `json:"counts"`
	TotalVotes  int64            `json:"total_votes"`
	TotalVoters int64            `json:"total_voters"`
}

type StudentRequest struct {
	Email      string `json:"email"`
	StudentID  string `json:"student_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
}

type BulkStudentsRequest struct {
	Students []StudentRequest `json:"students"`
}

type StudentResponse struct {
	Email        string `json:"email"`
	StudentID    string `json:"student_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Department   string `json:"department,omitempty"`
	IsRegistered bool   `json:"is_registered"`
	CreatedAt    string `json:"created_at"`
}

type StudentListResponse struct {
	Items []StudentResponse `json:"items"`
}

type BulkImportErrorResponse struct {
	Email string `json:"email"`
	Row   int    `json:"row,omitempty"`
	Error string `json:"error"`
}

type BulkImportResponse struct {
	Added   int                       `json:"added"`
	Skipped int                       `json:"skipped"`
	Errors  []BulkImportErrorResponse `json:"errors"`
}

type VoterListResponse struct {
	Items []VoterResponse `json:"items"`
}

type AdminEmailRequest struct {
	Email string `json:"email"`
}

type ResetResponse struct {
	Message        string `json:"message"`
	DeletedBallots int    `json:"deleted_ballots"`
	ResetVoters    int    `json:"reset_voters"`
}

type BootstrapStatusResponse struct {
	NeedsBootstrap bool  `json:"needs_bootstrap"`
	AdminCount     int64 `json:"admin_count"`
}

type EntitySyncResponse struct {
	Entity   string `json:"entity"`
	Scanned  int    `json:"scanned"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

type SyncFailureResponse struct {
	Entity string `json:"entity"`
	Key    string `json:"key"`
	Error  string `json:"error"`
}

type SyncResponse struct {
	StartedAt  string                `json:"started_at"`
	FinishedAt string                `json:"finished_at"`
	Entities   []EntitySyncResponse  `json:"entities"`
	Failures   []SyncFailureResponse `json:"failures"`
}
