package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// LoginCommand is the credential pair presented at login.
type LoginCommand struct {
	Email    string
	Password string
}

// LoginResult carries the issued token. Promoted is set when this login
// fired the admin bootstrap.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Voter     entities.Voter
	Promoted  bool
}

// ChangePasswordCommand requires the current password alongside the new one.
type ChangePasswordCommand struct {
	CurrentPassword string
	NewPassword     string
}

// SessionUseCase issues and verifies tokens and manages voter credentials.
type SessionUseCase struct {
	Voters              ports.VoterRepository
	Hasher              ports.PasswordHasher
	Tokens              ports.TokenIssuer
	Clock               ports.Clock
	Mirror              ports.MirrorPublisher
	BootstrapAdminEmail string
	Logger              *slog.Logger
}

// Login verifies credentials, evaluates the implicit admin bootstrap for the
// authenticating voter and issues a token reflecting the resulting role.
func (uc SessionUseCase) Login(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	email := services.NormalizeKey(cmd.Email)
	if email == "" || cmd.Password == "" {
		return LoginResult{}, domainerrors.ErrInvalidInput
	}

	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{Email: email})
	if err != nil {
		return LoginResult{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	if err := uc.Hasher.Compare(voter.PasswordHash, cmd.Password); err != nil {
		logger.Warn("login rejected",
			"event", "voting_login_invalid_credential",
			"module", application.ModuleName,
			"layer", "application",
			"voter_id", voter.VoterID,
		)
		return LoginResult{}, err
	}

	bootstrap := bootstrapEvaluator{
		Voters:              uc.Voters,
		Clock:               uc.Clock,
		Mirror:              uc.Mirror,
		BootstrapAdminEmail: uc.BootstrapAdminEmail,
		Logger:              logger,
	}
	voter, promoted, err := bootstrap.evaluate(ctx, voter)
	if err != nil {
		return LoginResult{}, err
	}

	token, expiresAt, err := uc.Tokens.Issue(identityOf(voter), currentTime(uc.Clock))
	if err != nil {
		return LoginResult{}, err
	}
	logger.Info("voter logged in",
		"event", "voting_login_succeeded",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"is_admin", voter.IsAdmin,
		"promoted", promoted,
	)
	return LoginResult{Token: token, ExpiresAt: expiresAt, Voter: voter, Promoted: promoted}, nil
}

// Authenticate verifies a bearer token and resolves the caller against the
// live voter record, so role changes apply before the token expires.
func (uc SessionUseCase) Authenticate(ctx context.Context, token string) (entities.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return entities.Identity{}, domainerrors.ErrTokenMalformed
	}
	claimed, err := uc.Tokens.Verify(token, currentTime(uc.Clock))
	if err != nil {
		return entities.Identity{}, err
	}
	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{VoterID: claimed.VoterID})
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return entities.Identity{}, domainerrors.ErrInvalidCredential
		}
		return entities.Identity{}, err
	}
	identity := identityOf(voter)
	identity.ExpiresAt = claimed.ExpiresAt
	return identity, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (uc SessionUseCase) ChangePassword(ctx context.Context, identity entities.Identity, cmd ChangePasswordCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireIdentity(identity); err != nil {
		return err
	}
	if cmd.CurrentPassword == "" {
		return domainerrors.ErrInvalidInput
	}
	if err := services.ValidatePassword(cmd.NewPassword); err != nil {
		return err
	}

	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{VoterID: identity.VoterID})
	if err != nil {
		return translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	if err := uc.Hasher.Compare(voter.PasswordHash, cmd.CurrentPassword); err != nil {
		return err
	}
	hash, err := uc.Hasher.Hash(cmd.NewPassword)
	if err != nil {
		return err
	}
	if err := uc.Voters.UpdateVoter(ctx, voter.VoterID, ports.VoterPatch{PasswordHash: &hash}, currentTime(uc.Clock)); err != nil {
		return translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))

	logger.Info("voter password changed",
		"event", "voting_password_changed",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
	)
	return nil
}

func identityOf(voter entities.Voter) entities.Identity {
	return entities.Identity{
		VoterID: voter.VoterID,
		Email:   voter.Email,
		IsAdmin: voter.IsAdmin,
	}
}
