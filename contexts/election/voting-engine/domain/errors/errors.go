package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every named error below wraps exactly one kind so transport
// code can map on the kind while callers can still match the specific error.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnavailable  = errors.New("store unavailable")
	ErrInternal     = errors.New("internal error")
)

var (
	ErrInvalidEmail       = kind(ErrValidation, "email address is invalid")
	ErrWeakPassword       = kind(ErrValidation, "password must be at least 8 characters")
	ErrPasswordTooLong    = kind(ErrValidation, "password is too long")
	ErrInvalidInput       = kind(ErrValidation, "invalid input")
	ErrInvalidGroupBy     = kind(ErrValidation, "group_by must be position or candidate")
	ErrAmbiguousCandidate = kind(ErrValidation, "candidate name matches more than one position")
	ErrInvalidSpreadsheet = kind(ErrValidation, "spreadsheet could not be read")

	ErrNotEligible       = kind(ErrForbidden, "email is not on the eligible student list")
	ErrProtectedAccount  = kind(ErrForbidden, "bootstrap admin account cannot be demoted")
	ErrAdminRequired     = kind(ErrForbidden, "admin access required")
	ErrInvalidCredential = kind(ErrUnauthorized, "invalid credentials")
	ErrTokenExpired      = kind(ErrUnauthorized, "token expired")
	ErrTokenMalformed    = kind(ErrUnauthorized, "token malformed")

	ErrAlreadyRegistered  = kind(ErrConflict, "student is already registered")
	ErrDuplicateVoter     = kind(ErrConflict, "voter already exists")
	ErrAlreadyVoted       = kind(ErrConflict, "voter has already voted")
	ErrAlreadyAdmin       = kind(ErrConflict, "voter is already an admin")
	ErrNotAdmin           = kind(ErrConflict, "voter is not an admin")
	ErrAdminExists        = kind(ErrConflict, "an admin already exists")
	ErrDuplicateCandidate = kind(ErrConflict, "candidate already exists for position")
	ErrDuplicateStudent   = kind(ErrConflict, "student already exists")
	ErrHasVotes           = kind(ErrConflict, "candidate has votes")

	ErrVoterNotFound     = kind(ErrNotFound, "voter not found")
	ErrStudentNotFound   = kind(ErrNotFound, "student not found")
	ErrCandidateNotFound = kind(ErrNotFound, "candidate not found")
)

func kind(base error, message string) error {
	return fmt.Errorf("%w: %s", base, message)
}

// CandidateNotFoundError carries the candidate list so callers can show what
// is available.
type CandidateNotFoundError struct {
	Name      string
	Available []string
}

func (e *CandidateNotFoundError) Error() string {
	return fmt.Sprintf("candidate %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *CandidateNotFoundError) Unwrap() error { return ErrCandidateNotFound }

type CandidateHasVotesError struct {
	Name  string
	Votes int64
}

func (e *CandidateHasVotesError) Error() string {
	return fmt.Sprintf("cannot delete candidate %q with %d votes", e.Name, e.Votes)
}

func (e *CandidateHasVotesError) Unwrap() error { return ErrHasVotes }
