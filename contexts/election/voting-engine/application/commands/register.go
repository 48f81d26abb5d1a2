package commands

import (
	"context"
	"errors"
	"log/slog"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// RegisterCommand is the self-service signup input.
type RegisterCommand struct {
	Email    string
	Password string
}

// RegisterResult returns the new voter and its student entry.
type RegisterResult struct {
	Voter   entities.Voter
	Student entities.Student
}

// RegistrationUseCase turns eligible students into voters.
type RegistrationUseCase struct {
	Voters              ports.VoterRepository
	Students            ports.StudentRepository
	Hasher              ports.PasswordHasher
	Clock               ports.Clock
	IDGen               ports.IDGenerator
	Mirror              ports.MirrorPublisher
	BootstrapAdminEmail string
	Logger              *slog.Logger
}

// Register creates a voter for an eligible, not yet registered student.
// The voter is written first and the student flag last; a failure on the flag
// is logged but does not undo the account.
func (uc RegistrationUseCase) Register(ctx context.Context, cmd RegisterCommand) (RegisterResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	email, err := services.NormalizeEmail(cmd.Email)
	if err != nil {
		return RegisterResult{}, err
	}
	if err := services.ValidatePassword(cmd.Password); err != nil {
		return RegisterResult{}, err
	}

	student, err := uc.Students.FindStudent(ctx, ports.StudentFilter{Email: email})
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			logger.Warn("registration rejected for ineligible email",
				"event", "voting_register_not_eligible",
				"module", application.ModuleName,
				"layer", "application",
				"email", email,
			)
			return RegisterResult{}, domainerrors.ErrNotEligible
		}
		return RegisterResult{}, err
	}
	if student.IsRegistered {
		return RegisterResult{}, domainerrors.ErrAlreadyRegistered
	}
	if _, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{Email: email}); err == nil {
		return RegisterResult{}, domainerrors.ErrDuplicateVoter
	} else if !errors.Is(err, ports.ErrRecordNotFound) {
		return RegisterResult{}, err
	}

	hash, err := uc.Hasher.Hash(cmd.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	voterID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RegisterResult{}, err
	}

	// The configured admin identity is an admin from the moment it exists,
	// which keeps it consistent with the demotion guard.
	isAdmin := services.IsProtectedAdmin(email, uc.BootstrapAdminEmail)

	now := currentTime(uc.Clock)
	voter := entities.Voter{
		VoterID:      voterID,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Voters.InsertVoter(ctx, voter); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return RegisterResult{}, domainerrors.ErrDuplicateVoter
		}
		return RegisterResult{}, err
	}
	changes := []ports.MirrorChange{upsertChange(entities.EntityVoter, voter.VoterID)}

	if err := uc.Students.UpdateStudent(ctx, student.StudentID, ports.StudentPatch{IsRegistered: boolPtr(true)}, now); err != nil {
		logger.Error("student registration flag update failed",
			"event", "voting_register_student_flag_failed",
			"module", application.ModuleName,
			"layer", "application",
			"student_id", student.StudentID,
			"voter_id", voter.VoterID,
			"error", err.Error(),
		)
	} else {
		student.IsRegistered = true
		student.UpdatedAt = now
		changes = append(changes, upsertChange(entities.EntityStudent, student.StudentID))
	}
	publishMirror(ctx, uc.Mirror, changes...)

	logger.Info("voter registered",
		"event", "voting_voter_registered",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"is_admin", voter.IsAdmin,
	)
	return RegisterResult{Voter: voter, Student: student}, nil
}
