package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/internal/auditcontext"
	identitydomain "github.com/smallbiznis/botcentral/internal/identity/domain"
	obscontext "github.com/smallbiznis/botcentral/internal/observability/context"
	"github.com/smallbiznis/botcentral/internal/ratelimit"
)

// RequireAuth resolves the caller from the session cookie or a bearer token
// and rejects the request when neither is valid.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := principalFrom(c); ok {
			c.Next()
			return
		}
		principal, err := s.resolvePrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if err := s.attachPrincipal(c, principal); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches a principal when one resolves. Unauthenticated
// callers continue as free tier.
func (s *Server) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.resolvePrincipal(c)
		if err != nil {
			if isUnauthenticated(err) {
				c.Next()
				return
			}
			AbortWithError(c, err)
			return
		}
		if err := s.attachPrincipal(c, principal); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireSession rejects principals that authenticated with a bearer token.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if principal.AuthMethod != identitydomain.AuthMethodSession {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) resolvePrincipal(c *gin.Context) (*identitydomain.Principal, error) {
	var creds identitydomain.Credentials
	if token, ok := s.sessions.ReadToken(c); ok {
		creds.SessionToken = token
	}
	if secret, ok := s.sessions.ReadBearer(c); ok {
		creds.BearerToken = secret
	}
	return s.resolver.Resolve(c.Request.Context(), creds)
}

func (s *Server) attachPrincipal(c *gin.Context, principal *identitydomain.Principal) error {
	actorType := string(auditdomain.ActorTypeUser)
	if principal.AuthMethod == identitydomain.AuthMethodToken && principal.TokenID != nil {
		actorType = string(auditdomain.ActorTypeToken)
		if err := s.allow(c, ratelimit.ScopeBearer, principal.TokenID.String()); err != nil {
			return err
		}
	}

	ctx := c.Request.Context()
	ctx = identitydomain.WithPrincipal(ctx, principal)
	ctx = auditcontext.WithActor(ctx, actorType, principal.UserID.String())
	ctx = obscontext.WithActor(ctx, actorType, principal.UserID.String())
	c.Request = c.Request.WithContext(ctx)
	return nil
}

// allow takes a token from the limiter and sets the standard headers.
func (s *Server) allow(c *gin.Context, scope ratelimit.Scope, key string) error {
	if s.limiter == nil {
		return nil
	}
	res := s.limiter.Allow(c.Request.Context(), scope, key)
	if res.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	}
	if !res.Allowed {
		retry := int(res.RetryAfter / time.Second)
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		return ErrRateLimited
	}
	return nil
}

func principalFrom(c *gin.Context) (*identitydomain.Principal, bool) {
	return identitydomain.PrincipalFromContext(c.Request.Context())
}

func isUnauthenticated(err error) bool {
	_, payload := mapError(err)
	return payload.Type == "unauthorized"
}
