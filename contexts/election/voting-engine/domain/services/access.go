package services

import (
	"strings"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
)

func RequireIdentity(identity entities.Identity) error {
	if strings.TrimSpace(identity.VoterID) == "" {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

func RequireAdmin(identity entities.Identity) error {
	if err := RequireIdentity(identity); err != nil {
		return err
	}
	if !identity.IsAdmin {
		return domainerrors.ErrAdminRequired
	}
	return nil
}
