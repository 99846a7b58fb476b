package domain

import (
	"context"
	"errors"
	"slices"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
)

type AuthMethod string

const (
	AuthMethodSession AuthMethod = "session"
	AuthMethodToken   AuthMethod = "token"
)

// Principal is the authenticated caller of a request. It is never persisted.
type Principal struct {
	UserID      snowflake.ID
	AuthMethod  AuthMethod
	Permissions []string
	TokenID     *snowflake.ID
	TokenHint   string
}

func (p *Principal) Has(permission string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, permission)
}

// Credentials carries the raw secrets presented with a request.
type Credentials struct {
	SessionToken string
	BearerToken  string
}

//go:generate mockgen -destination=../mocks/user_source.go -package=mocks github.com/smallbiznis/botcentral/internal/identity/domain UserSource

// UserSource loads the owner of a credential.
type UserSource interface {
	GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error)
}

type Resolver interface {
	Resolve(ctx context.Context, creds Credentials) (*Principal, error)
	Entitlement(user *authdomain.User) []string
}

var ErrUnauthenticated = errors.New("unauthenticated")

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
