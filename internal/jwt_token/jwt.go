// Package jwttoken issues and validates the access tokens back-office staff
// authenticate with. Claims carry the actor and their roles; role checks
// themselves live in the domain layer.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
	pstrings "bankops/pkg/platform/strings"
)

// Claims represents the JWT claims for our access tokens.
type Claims struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token for the actor. Role claims are trimmed,
// lower-cased, and deduplicated so validation sees a canonical list.
func (s *JWTService) GenerateAccessToken(actorID id.ActorID, roles []string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID: actorID.String(),
		Roles:   pstrings.DedupeAndTrimLower(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Actor resolves the parsed claims into domain types. The first role claim
// that parses wins; tokens without a known role are unauthorized.
func (c *Claims) Actor() (id.ActorID, id.Role, error) {
	actorID, err := id.ParseActorID(c.ActorID)
	if err != nil {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid actor claim")
	}
	for _, raw := range c.Roles {
		role, err := id.ParseRole(raw)
		if err == nil {
			return actorID, role, nil
		}
	}
	return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "no recognized role claim")
}
