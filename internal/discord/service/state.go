package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/botcentral/internal/discord/domain"
)

const stateIssuer = "botcentral/discord"

type stateClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func (s *Service) signState(userID snowflake.ID) (string, error) {
	now := s.clock.Now()
	claims := stateClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateSecret)
}

func (s *Service) parseState(raw string) (stateClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(s.stateSecret) == 0 {
		return stateClaims{}, domain.ErrInvalidState
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.stateSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.clock.Now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.log.Debug("expired discord state")
		}
		return stateClaims{}, domain.ErrInvalidState
	}
	if _, err := ulid.ParseStrict(claims.ID); err != nil {
		return stateClaims{}, domain.ErrInvalidState
	}
	return claims, nil
}

// consumeState verifies raw and marks its jti as used when a nonce store is
// configured.
func (s *Service) consumeState(ctx context.Context, raw string) (snowflake.ID, error) {
	claims, err := s.parseState(raw)
	if err != nil {
		return 0, err
	}
	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID <= 0 {
		return 0, domain.ErrInvalidState
	}

	if s.nonces != nil {
		ttl := s.stateTTL
		if claims.ExpiresAt != nil {
			if remaining := claims.ExpiresAt.Sub(s.clock.Now()); remaining > 0 {
				ttl = remaining
			}
		}
		fresh, err := s.nonces.Claim(ctx, "discord:state:"+claims.ID, ttl)
		if err != nil {
			return 0, err
		}
		if !fresh {
			return 0, domain.ErrInvalidState
		}
	}
	return userID, nil
}
