package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

type voterClaims struct {
	Email string `json:"email"`
	Admin bool   `json:"adm"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 voter tokens. Expired and malformed tokens are
// reported as distinct errors so clients know to re-authenticate.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewJWTIssuer(secret string, ttl time.Duration, issuer string) (*JWTIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, issuer: strings.TrimSpace(issuer)}, nil
}

func (j *JWTIssuer) Issue(identity entities.Identity, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(j.ttl).UTC()
	claims := voterClaims{
		Email: identity.Email,
		Admin: identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.VoterID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt.UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (j *JWTIssuer) Verify(token string, now time.Time) (entities.Identity, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		options = append(options, jwt.WithIssuer(j.issuer))
	}

	claims := &voterClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entities.Identity{}, domainerrors.ErrTokenExpired
		}
		return entities.Identity{}, domainerrors.ErrTokenMalformed
	}
	if !parsed.Valid || claims.Subject == "" {
		return entities.Identity{}, domainerrors.ErrTokenMalformed
	}

	identity := entities.Identity{
		VoterID: claims.Subject,
		Email:   claims.Email,
		IsAdmin: claims.Admin,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return identity, nil
}
