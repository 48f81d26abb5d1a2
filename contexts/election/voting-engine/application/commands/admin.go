package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// BootstrapAdminCommand carries the credentials for the explicit first-admin
// bootstrap.
type BootstrapAdminCommand struct {
	Email    string
	Password string
}

// AdminUseCase owns the admin bootstrap state machine and admin role changes.
type AdminUseCase struct {
	Voters              ports.VoterRepository
	Hasher              ports.PasswordHasher
	Tokens              ports.TokenIssuer
	Clock               ports.Clock
	Mirror              ports.MirrorPublisher
	BootstrapAdminEmail string
	Logger              *slog.Logger
}

// Promote grants admin rights to the voter with email. It fails with
// AlreadyAdmin when the voter is an admin already.
func (uc AdminUseCase) Promote(ctx context.Context, actor entities.Identity, email string) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Voter{}, err
	}
	voter, err := uc.findByEmail(ctx, email)
	if err != nil {
		return entities.Voter{}, err
	}
	if voter.IsAdmin {
		return entities.Voter{}, domainerrors.ErrAlreadyAdmin
	}

	now := currentTime(uc.Clock)
	if err := uc.Voters.UpdateVoter(ctx, voter.VoterID, ports.VoterPatch{IsAdmin: boolPtr(true)}, now); err != nil {
		return entities.Voter{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	voter.IsAdmin = true
	voter.UpdatedAt = now
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))

	logger.Info("voter promoted to admin",
		"event", "voting_admin_promoted",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"actor_id", actor.VoterID,
	)
	return voter, nil
}

// Demote revokes admin rights. The configured bootstrap admin is protected
// and a voter who is not an admin yields NotAdmin.
func (uc AdminUseCase) Demote(ctx context.Context, actor entities.Identity, email string) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Voter{}, err
	}
	if services.IsProtectedAdmin(email, uc.BootstrapAdminEmail) {
		return entities.Voter{}, domainerrors.ErrProtectedAccount
	}
	voter, err := uc.findByEmail(ctx, email)
	if err != nil {
		return entities.Voter{}, err
	}
	if !voter.IsAdmin {
		return entities.Voter{}, domainerrors.ErrNotAdmin
	}

	now := currentTime(uc.Clock)
	if err := uc.Voters.UpdateVoter(ctx, voter.VoterID, ports.VoterPatch{IsAdmin: boolPtr(false)}, now); err != nil {
		return entities.Voter{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	voter.IsAdmin = false
	voter.UpdatedAt = now
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))

	logger.Info("admin demoted",
		"event", "voting_admin_demoted",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"actor_id", actor.VoterID,
	)
	return voter, nil
}

// BootstrapAdmin is the explicit bootstrap path: while no admin exists, a
// voter that re-proves its credentials is promoted and gets a fresh token.
func (uc AdminUseCase) BootstrapAdmin(ctx context.Context, cmd BootstrapAdminCommand) (LoginResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	email := services.NormalizeKey(cmd.Email)
	if email == "" || cmd.Password == "" {
		return LoginResult{}, domainerrors.ErrInvalidInput
	}

	admins, err := uc.Voters.CountVoters(ctx, ports.VoterFilter{IsAdmin: boolPtr(true)})
	if err != nil {
		return LoginResult{}, err
	}
	if admins > 0 {
		return LoginResult{}, domainerrors.ErrAdminExists
	}

	voter, err := uc.findByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := uc.Hasher.Compare(voter.PasswordHash, cmd.Password); err != nil {
		return LoginResult{}, err
	}

	now := currentTime(uc.Clock)
	promoted, err := uc.Voters.PromoteIfNoAdmin(ctx, voter.VoterID, now)
	if err != nil {
		return LoginResult{}, err
	}
	if !promoted {
		return LoginResult{}, domainerrors.ErrAdminExists
	}
	voter.IsAdmin = true
	voter.UpdatedAt = now
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))

	token, expiresAt, err := uc.Tokens.Issue(identityOf(voter), now)
	if err != nil {
		return LoginResult{}, err
	}
	logger.Info("admin bootstrapped",
		"event", "voting_admin_bootstrapped",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"trigger", "explicit",
	)
	return LoginResult{Token: token, ExpiresAt: expiresAt, Voter: voter, Promoted: true}, nil
}

// EnsureBootstrapAdmin is the startup hook. It promotes the configured
// bootstrap identity when that voter exists and no admin does. It never
// creates accounts.
func (uc AdminUseCase) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	configured := services.NormalizeKey(uc.BootstrapAdminEmail)
	if configured == "" {
		return false, nil
	}
	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{Email: configured})
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	evaluator := bootstrapEvaluator{
		Voters:              uc.Voters,
		Clock:               uc.Clock,
		Mirror:              uc.Mirror,
		BootstrapAdminEmail: uc.BootstrapAdminEmail,
		Logger:              uc.Logger,
	}
	_, promoted, err := evaluator.evaluate(ctx, voter)
	return promoted, err
}

func (uc AdminUseCase) findByEmail(ctx context.Context, email string) (entities.Voter, error) {
	normalized := services.NormalizeKey(email)
	if normalized == "" {
		return entities.Voter{}, domainerrors.ErrInvalidInput
	}
	voter, err := uc.Voters.FindVoter(ctx, ports.VoterFilter{Email: normalized})
	if err != nil {
		return entities.Voter{}, translateNotFound(err, domainerrors.ErrVoterNotFound)
	}
	return voter, nil
}

// bootstrapEvaluator runs the implicit NoAdminExists -> AdminExists
// transition. The admin count is read on every call and the promotion itself
// is conditional in the store.
type bootstrapEvaluator struct {
	Voters              ports.VoterRepository
	Clock               ports.Clock
	Mirror              ports.MirrorPublisher
	BootstrapAdminEmail string
	Logger              *slog.Logger
}

func (e bootstrapEvaluator) evaluate(ctx context.Context, voter entities.Voter) (entities.Voter, bool, error) {
	if voter.IsAdmin {
		return voter, false, nil
	}
	admins, err := e.Voters.CountVoters(ctx, ports.VoterFilter{IsAdmin: boolPtr(true)})
	if err != nil {
		return voter, false, err
	}
	trigger := services.ImplicitBootstrapTrigger(admins, voter.Email, e.BootstrapAdminEmail)
	if trigger == services.BootstrapNone {
		return voter, false, nil
	}

	now := currentTime(e.Clock)
	promoted, err := e.Voters.PromoteIfNoAdmin(ctx, voter.VoterID, now)
	if err != nil || !promoted {
		return voter, false, err
	}
	voter.IsAdmin = true
	voter.UpdatedAt = now
	publishMirror(ctx, e.Mirror, upsertChange(entities.EntityVoter, voter.VoterID))

	application.ResolveLogger(e.Logger).Info("admin bootstrapped",
		"event", "voting_admin_bootstrapped",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voter.VoterID,
		"trigger", strings.ToLower(string(trigger)),
	)
	return voter, true, nil
}
