package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/commands"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/queries"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/workers"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
	httptransport "github.com/TADABA21/voting-app/contexts/election/voting-engine/transport/http"
)

type Handler struct {
	Registration commands.RegistrationUseCase
	Sessions     commands.SessionUseCase
	Admins       commands.AdminUseCase
	Ballots      commands.BallotUseCase
	Candidates   commands.CandidateUseCase
	Students     commands.StudentUseCase
	Results      queries.ResultsUseCase
	Directory    queries.DirectoryUseCase
	Reconciler   workers.Reconciler
	Logger       *slog.Logger
}

// Authenticate resolves a bearer token to the caller's identity.
func (h Handler) Authenticate(ctx context.Context, token string) (entities.Identity, error) {
	return h.Sessions.Authenticate(ctx, token)
}

// RegisterHandler godoc
// @Summary Register a voter
// @Description Creates a voter account for an email on the eligible student list.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body httptransport.CredentialsRequest true "Registration payload"
// @Success 201 {object} httptransport.RegisterResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/auth/register [post]
func (h Handler) RegisterHandler(ctx context.Context, req httptransport.CredentialsRequest) (httptransport.RegisterResponse, error) {
	result, err := h.Registration.Register(ctx, commands.RegisterCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httptransport.RegisterResponse{}, err
	}
	return httptransport.RegisterResponse{
		Message: "registration successful",
		Voter:   mapVoter(result.Voter),
	}, nil
}

// LoginHandler godoc
// @Summary Log in
// @Description Verifies credentials and issues a bearer token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body httptransport.CredentialsRequest true "Login payload"
// @Success 200 {object} httptransport.LoginResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/auth/login [post]
func (h Handler) LoginHandler(ctx context.Context, req httptransport.CredentialsRequest) (httptransport.LoginResponse, error) {
	result, err := h.Sessions.Login(ctx, commands.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httptransport.LoginResponse{}, err
	}
	return mapLogin(result), nil
}

// ChangePasswordHandler godoc
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.ChangePasswordRequest true "Password change payload"
// @Success 200 {object} httptransport.MessageResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/auth/change-password [post]
func (h Handler) ChangePasswordHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.ChangePasswordRequest,
) (httptransport.MessageResponse, error) {
	if err := h.Sessions.ChangePassword(ctx, identity, commands.ChangePasswordCommand{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		return httptransport.MessageResponse{}, err
	}
	return httptransport.MessageResponse{Message: "password updated"}, nil
}

// SessionHandler godoc
// @Summary Check session
// @Description Returns the caller's voter record, including whether it has voted.
// @Tags vote
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.SessionResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Router /api/vote/check [get]
func (h Handler) SessionHandler(ctx context.Context, identity entities.Identity) (httptransport.SessionResponse, error) {
	voter, err := h.Directory.CurrentVoter(ctx, identity)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return httptransport.SessionResponse{
		VoterID:  voter.VoterID,
		Email:    voter.Email,
		HasVoted: voter.HasVoted,
		IsAdmin:  voter.IsAdmin,
	}, nil
}

// ListCandidatesHandler godoc
// @Summary List candidates
// @Tags vote
// @Produce json
// @Success 200 {object} httptransport.CandidateListResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/vote/candidates [get]
func (h Handler) ListCandidatesHandler(ctx context.Context) (httptransport.CandidateListResponse, error) {
	items, err := h.Directory.ListCandidates(ctx)
	if err != nil {
		return httptransport.CandidateListResponse{}, err
	}
	out := make([]httptransport.CandidateResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapCandidate(item))
	}
	return httptransport.CandidateListResponse{Items: out}, nil
}

// SubmitVoteHandler godoc
// @Summary Cast a ballot
// @Description Records the caller's single vote for a candidate.
// @Tags vote
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.SubmitVoteRequest true "Vote payload"
// @Success 201 {object} httptransport.SubmitVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/vote/submit [post]
func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.Ballots.SubmitVote(ctx, identity, commands.SubmitVoteCommand{
		CandidateName: req.CandidateName,
		Position:      req.Position,
	})
	if err != nil {
		logger.Warn("vote submission rejected",
			"event", "http_submit_vote_rejected",
			"module", application.ModuleName,
			"layer", "transport",
			"voter_id", identity.VoterID,
			"error", err.Error(),
		)
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		Message:   "vote recorded",
		BallotID:  result.Ballot.BallotID,
		Candidate: mapCandidate(result.Candidate),
		CastAt:    formatTime(result.Ballot.CastAt),
	}, nil
}

// ResultsHandler godoc
// @Summary Election results
// @Description Vote totals grouped by position (default) or as a flat candidate list.
// @Tags vote
// @Produce json
// @Security BearerAuth
// @Param group_by query string false "position or candidate"
// @Success 200 {object} httptransport.ResultsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/vote/results [get]
func (h Handler) ResultsHandler(ctx context.Context, groupBy string) (httptransport.ResultsResponse, error) {
	tally, err := h.Results.Tally(ctx, groupBy)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return mapTally(tally), nil
}

// PublicResultsHandler godoc
// @Summary Public results
// @Description Flat candidate results sorted by votes, without authentication.
// @Tags vote
// @Produce json
// @Success 200 {object} httptransport.ResultsResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/results [get]
func (h Handler) PublicResultsHandler(ctx context.Context) (httptransport.ResultsResponse, error) {
	return h.ResultsHandler(ctx, queries.GroupByCandidate)
}

// AdminCheckHandler godoc
// @Summary Check admin access
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.SessionResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /api/admin/check [get]
func (h Handler) AdminCheckHandler(ctx context.Context, identity entities.Identity) (httptransport.SessionResponse, error) {
	if err := services.RequireAdmin(identity); err != nil {
		return httptransport.SessionResponse{}, err
	}
	return h.SessionHandler(ctx, identity)
}

// AddCandidateHandler godoc
// @Summary Add a candidate
// @Description Position defaults to General when empty.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.AddCandidateRequest true "Candidate payload"
// @Success 201 {object} httptransport.CandidateResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/candidates [post]
func (h Handler) AddCandidateHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.AddCandidateRequest,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Candidates.AddCandidate(ctx, identity, commands.AddCandidateCommand{
		Name:     req.Name,
		Position: req.Position,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

// DeleteCandidateHandler godoc
// @Summary Delete a candidate
// @Description Refused while the candidate holds votes.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param name path string true "Candidate name"
// @Param position query string false "Position, required when the name is used for several positions"
// @Success 200 {object} httptransport.CandidateResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/candidates/{name} [delete]
func (h Handler) DeleteCandidateHandler(
	ctx context.Context,
	identity entities.Identity,
	name string,
	position string,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Candidates.DeleteCandidate(ctx, identity, commands.DeleteCandidateCommand{
		Name:     name,
		Position: position,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

// VoteCountsHandler godoc
// @Summary Raw vote counts
// @Description Vote counts keyed by candidate name, with totals.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.VoteCountsResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/vote-counts [get]
func (h Handler) VoteCountsHandler(ctx context.Context, identity entities.Identity) (httptransport.VoteCountsResponse, error) {
	result, err := h.Results.VoteCounts(ctx, identity)
	if err != nil {
		return httptransport.VoteCountsResponse{}, err
	}
	return httptransport.VoteCountsResponse{
		Counts:      result.Counts,
		TotalVotes:  result.TotalVotes,
		TotalVoters: result.TotalVoters,
	}, nil
}

// AddStudentHandler godoc
// @Summary Add an eligible student
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.StudentRequest true "Student payload"
// @Success 201 {object} httptransport.StudentResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/students [post]
func (h Handler) AddStudentHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.StudentRequest,
) (httptransport.StudentResponse, error) {
	student, err := h.Students.AddStudent(ctx, identity, commands.AddStudentCommand{
		Email:         req.Email,
		StudentNumber: req.StudentID,
		Name:          req.Name,
		Department:    req.Department,
	})
	if err != nil {
		return httptransport.StudentResponse{}, err
	}
	return mapStudent(student), nil
}

// BulkAddStudentsHandler godoc
// @Summary Add eligible students in bulk
// @Description Duplicates are skipped; per-row failures are reported without aborting the batch.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.BulkStudentsRequest true "Students payload"
// @Success 200 {object} httptransport.BulkImportResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/students/bulk [post]
func (h Handler) BulkAddStudentsHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.BulkStudentsRequest,
) (httptransport.BulkImportResponse, error) {
	rows := make([]ports.StudentRow, 0, len(req.Students))
	for index, item := range req.Students {
		rows = append(rows, ports.StudentRow{
			Row:           index + 1,
			Email:         item.Email,
			StudentNumber: item.StudentID,
			Name:          item.Name,
			Department:    item.Department,
		})
	}
	result, err := h.Students.BulkAddStudents(ctx, identity, rows)
	if err != nil {
		return httptransport.BulkImportResponse{}, err
	}
	return mapBulkImport(result), nil
}

// ImportStudentsSheetHandler godoc
// @Summary Import eligible students from a spreadsheet
// @Description Reads the first sheet of an XLSX upload. The header row must contain an email column.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "XLSX workbook"
// @Success 200 {object} httptransport.BulkImportResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/students/bulk-excel [post]
func (h Handler) ImportStudentsSheetHandler(
	ctx context.Context,
	identity entities.Identity,
	file io.Reader,
) (httptransport.BulkImportResponse, error) {
	result, err := h.Students.ImportStudentsSheet(ctx, identity, file)
	if err != nil {
		return httptransport.BulkImportResponse{}, err
	}
	return mapBulkImport(result), nil
}

// ListStudentsHandler godoc
// @Summary List eligible students
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.StudentListResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/students [get]
func (h Handler) ListStudentsHandler(ctx context.Context, identity entities.Identity) (httptransport.StudentListResponse, error) {
	items, err := h.Directory.ListStudents(ctx, identity)
	if err != nil {
		return httptransport.StudentListResponse{}, err
	}
	out := make([]httptransport.StudentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapStudent(item))
	}
	return httptransport.StudentListResponse{Items: out}, nil
}

// RemoveStudentHandler godoc
// @Summary Remove an eligible student
// @Description Existing voter accounts are kept.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Student email"
// @Success 200 {object} httptransport.StudentResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/students/{email} [delete]
func (h Handler) RemoveStudentHandler(
	ctx context.Context,
	identity entities.Identity,
	email string,
) (httptransport.StudentResponse, error) {
	student, err := h.Students.RemoveStudent(ctx, identity, email)
	if err != nil {
		return httptransport.StudentResponse{}, err
	}
	return mapStudent(student), nil
}

// ListVotersHandler godoc
// @Summary List voters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param voted query bool false "Only voters who have voted"
// @Success 200 {object} httptransport.VoterListResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/voters [get]
func (h Handler) ListVotersHandler(
	ctx context.Context,
	identity entities.Identity,
	onlyVoted bool,
) (httptransport.VoterListResponse, error) {
	items, err := h.Directory.ListVoters(ctx, identity, onlyVoted)
	if err != nil {
		return httptransport.VoterListResponse{}, err
	}
	out := make([]httptransport.VoterResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapVoter(item))
	}
	return httptransport.VoterListResponse{Items: out}, nil
}

// PromoteHandler godoc
// @Summary Grant admin
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.AdminEmailRequest true "Target voter"
// @Success 200 {object} httptransport.VoterResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/admin/make-admin [post]
func (h Handler) PromoteHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.AdminEmailRequest,
) (httptransport.VoterResponse, error) {
	voter, err := h.Admins.Promote(ctx, identity, req.Email)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

// DemoteHandler godoc
// @Summary Revoke admin
// @Description The configured bootstrap admin cannot be demoted.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body httptransport.AdminEmailRequest true "Target voter"
// @Success 200 {object} httptransport.VoterResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/admin/remove-admin [post]
func (h Handler) DemoteHandler(
	ctx context.Context,
	identity entities.Identity,
	req httptransport.AdminEmailRequest,
) (httptransport.VoterResponse, error) {
	voter, err := h.Admins.Demote(ctx, identity, req.Email)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

// ResetHandler godoc
// @Summary Reset the election
// @Description Deletes every ballot and clears every voter's voted flag.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.ResetResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/reset [post]
func (h Handler) ResetHandler(ctx context.Context, identity entities.Identity) (httptransport.ResetResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	result, err := h.Ballots.ResetBallots(ctx, identity)
	if err != nil {
		return httptransport.ResetResponse{}, err
	}
	logger.Info("election reset",
		"event", "http_reset_completed",
		"module", application.ModuleName,
		"layer", "transport",
		"actor_id", identity.VoterID,
		"deleted_ballots", result.DeletedBallots,
	)
	return httptransport.ResetResponse{
		Message:        "all votes have been reset",
		DeletedBallots: result.DeletedBallots,
		ResetVoters:    result.ResetVoters,
	}, nil
}

// BootstrapHandler godoc
// @Summary Bootstrap the first admin
// @Description Promotes a registered voter while no admin exists.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body httptransport.CredentialsRequest true "Voter credentials"
// @Success 200 {object} httptransport.LoginResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /api/admin/bootstrap [post]
func (h Handler) BootstrapHandler(ctx context.Context, req httptransport.CredentialsRequest) (httptransport.LoginResponse, error) {
	result, err := h.Admins.BootstrapAdmin(ctx, commands.BootstrapAdminCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httptransport.LoginResponse{}, err
	}
	return mapLogin(result), nil
}

// BootstrapStatusHandler godoc
// @Summary Bootstrap status
// @Tags admin
// @Produce json
// @Success 200 {object} httptransport.BootstrapStatusResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/bootstrap-status [get]
func (h Handler) BootstrapStatusHandler(ctx context.Context) (httptransport.BootstrapStatusResponse, error) {
	status, err := h.Directory.BootstrapStatus(ctx)
	if err != nil {
		return httptransport.BootstrapStatusResponse{}, err
	}
	return httptransport.BootstrapStatusResponse{
		NeedsBootstrap: status.NeedsBootstrap,
		AdminCount:     status.AdminCount,
	}, nil
}

// SyncHandler godoc
// @Summary Reconcile the secondary store
// @Description Re-mirrors voters, candidates, students and ballots, in that order.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httptransport.SyncResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/admin/sync [post]
func (h Handler) SyncHandler(ctx context.Context, identity entities.Identity) (httptransport.SyncResponse, error) {
	report, err := h.Reconciler.FullSync(ctx, identity)
	if err != nil {
		return httptransport.SyncResponse{}, err
	}
	return mapSyncReport(report), nil
}

func mapVoter(voter entities.Voter) httptransport.VoterResponse {
	return httptransport.VoterResponse{
		VoterID:   voter.VoterID,
		Email:     voter.Email,
		HasVoted:  voter.HasVoted,
		IsAdmin:   voter.IsAdmin,
		CreatedAt: formatTime(voter.CreatedAt),
	}
}

func mapLogin(result commands.LoginResult) httptransport.LoginResponse {
	return httptransport.LoginResponse{
		Token:     result.Token,
		ExpiresAt: formatTime(result.ExpiresAt),
		Voter:     mapVoter(result.Voter),
		Promoted:  result.Promoted,
	}
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		CandidateID: candidate.CandidateID,
		Name:        candidate.Name,
		Position:    candidate.Position,
		ImageURL:    candidate.ImageURL,
	}
}

func mapStudent(student entities.Student) httptransport.StudentResponse {
	return httptransport.StudentResponse{
		Email:        student.Email,
		StudentID:    student.StudentNumber,
		Name:         student.Name,
		Department:   student.Department,
		IsRegistered: student.IsRegistered,
		CreatedAt:    formatTime(student.CreatedAt),
	}
}

func mapCandidateTallies(items []entities.CandidateTally) []httptransport.CandidateTallyResponse {
	out := make([]httptransport.CandidateTallyResponse, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.CandidateTallyResponse{
			Name:     item.Name,
			Position: item.Position,
			ImageURL: item.ImageURL,
			Votes:    item.Votes,
		})
	}
	return out
}

func mapTally(tally entities.Tally) httptransport.ResultsResponse {
	response := httptransport.ResultsResponse{
		GroupBy:    tally.GroupBy,
		TotalVotes: tally.TotalVotes,
	}
	if tally.GroupBy == queries.GroupByCandidate {
		response.Candidates = mapCandidateTallies(tally.Candidates)
		return response
	}
	response.Positions = make([]httptransport.PositionTallyResponse, 0, len(tally.Positions))
	for _, position := range tally.Positions {
		response.Positions = append(response.Positions, httptransport.PositionTallyResponse{
			Position:   position.Position,
			TotalVotes: position.TotalVotes,
			Candidates: mapCandidateTallies(position.Candidates),
		})
	}
	return response
}

func mapBulkImport(result entities.BulkImportResult) httptransport.BulkImportResponse {
	errs := make([]httptransport.BulkImportErrorResponse, 0, len(result.Errors))
	for _, item := range result.Errors {
		errs = append(errs, httptransport.BulkImportErrorResponse{
			Email: item.Email,
			Row:   item.Row,
			Error: item.Error,
		})
	}
	return httptransport.BulkImportResponse{
		Added:   result.Added,
		Skipped: result.Skipped,
		Errors:  errs,
	}
}

func mapSyncReport(report entities.SyncReport) httptransport.SyncResponse {
	stats := make([]httptransport.EntitySyncResponse, 0, len(report.Entities))
	for _, item := range report.Entities {
		stats = append(stats, httptransport.EntitySyncResponse{
			Entity:   string(item.Entity),
			Scanned:  item.Scanned,
			Inserted: item.Inserted,
			Updated:  item.Updated,
			Skipped:  item.Skipped,
			Failed:   item.Failed,
		})
	}
	failures := make([]httptransport.SyncFailureResponse, 0, len(report.Failures))
	for _, item := range report.Failures {
		failures = append(failures, httptransport.SyncFailureResponse{
			Entity: string(item.Entity),
			Key:    item.Key,
			Error:  item.Error,
		})
	}
	return httptransport.SyncResponse{
		StartedAt:  formatTime(report.StartedAt),
		FinishedAt: formatTime(report.FinishedAt),
		Entities:   stats,
		Failures:   failures,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
