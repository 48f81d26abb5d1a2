package httpserver

import (
	"errors"
	"net/http"

	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	votinghttp "github.com/TADABA21/voting-app/contexts/election/voting-engine/transport/http"
)

// Named errors get their own code; anything else falls back to its kind.
var votingErrorCodes = []struct {
	err  error
	code string
}{
	{domainerrors.ErrInvalidEmail, "invalid_email"},
	{domainerrors.ErrWeakPassword, "weak_password"},
	{domainerrors.ErrPasswordTooLong, "password_too_long"},
	{domainerrors.ErrInvalidGroupBy, "invalid_group_by"},
	{domainerrors.ErrAmbiguousCandidate, "ambiguous_candidate"},
	{domainerrors.ErrInvalidSpreadsheet, "invalid_spreadsheet"},
	{domainerrors.ErrNotEligible, "not_eligible"},
	{domainerrors.ErrProtectedAccount, "protected_account"},
	{domainerrors.ErrAdminRequired, "admin_required"},
	{domainerrors.ErrInvalidCredential, "invalid_credentials"},
	{domainerrors.ErrTokenExpired, "token_expired"},
	{domainerrors.ErrTokenMalformed, "token_invalid"},
	{domainerrors.ErrAlreadyRegistered, "already_registered"},
	{domainerrors.ErrDuplicateVoter, "duplicate_voter"},
	{domainerrors.ErrAlreadyVoted, "already_voted"},
	{domainerrors.ErrAlreadyAdmin, "already_admin"},
	{domainerrors.ErrNotAdmin, "not_admin"},
	{domainerrors.ErrAdminExists, "admin_exists"},
	{domainerrors.ErrDuplicateCandidate, "duplicate_candidate"},
	{domainerrors.ErrDuplicateStudent, "duplicate_student"},
	{domainerrors.ErrVoterNotFound, "voter_not_found"},
	{domainerrors.ErrStudentNotFound, "student_not_found"},
}

var votingErrorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domainerrors.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{domainerrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainerrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domainerrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{domainerrors.ErrConflict, http.StatusConflict, "conflict"},
	{domainerrors.ErrUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
}

func (s *Server) writeVotingDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *domainerrors.CandidateNotFoundError
	if errors.As(err, &notFound) {
		writeVotingError(w, http.StatusNotFound, "candidate_not_found", err.Error(), map[string]any{
			"available": notFound.Available,
		})
		return
	}
	var hasVotes *domainerrors.CandidateHasVotesError
	if errors.As(err, &hasVotes) {
		writeVotingError(w, http.StatusConflict, "candidate_has_votes", err.Error(), map[string]any{
			"votes": hasVotes.Votes,
		})
		return
	}

	for _, kind := range votingErrorKinds {
		if !errors.Is(err, kind.err) {
			continue
		}
		code := kind.code
		for _, named := range votingErrorCodes {
			if errors.Is(err, named.err) {
				code = named.code
				break
			}
		}
		message := err.Error()
		if kind.status == http.StatusServiceUnavailable {
			s.logFailure(r, err)
			message = "store temporarily unavailable"
		}
		writeVotingError(w, kind.status, code, message, nil)
		return
	}

	s.logFailure(r, err)
	writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}

func (s *Server) logFailure(r *http.Request, err error) {
	s.logger.Error("request failed",
		"event", "http_request_failed",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
	)
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
