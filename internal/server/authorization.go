package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	"github.com/smallbiznis/botcentral/internal/authorization"
	obscontext "github.com/smallbiznis/botcentral/internal/observability/context"
)

// authorizeGuild checks object/action for the caller in guildID. It always
// consults the current role ledger.
func (s *Server) authorizeGuild(c *gin.Context, guildID string, object string, action string) error {
	principal, ok := principalFrom(c)
	if !ok {
		return ErrUnauthorized
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return authorization.ErrInvalidGuild
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}

	c.Request = c.Request.WithContext(obscontext.WithGuildID(c.Request.Context(), guildID))
	return s.authzSvc.Authorize(c.Request.Context(), principal.UserID, guildID, strings.TrimSpace(object), strings.TrimSpace(action))
}

// authorizeScope authorizes a record that may be global. Global records
// (nil guild) need the admin capability.
func (s *Server) authorizeScope(c *gin.Context, guildID *string, object string, action string) error {
	if guildID != nil && strings.TrimSpace(*guildID) != "" {
		return s.authorizeGuild(c, *guildID, object, action)
	}
	principal, ok := principalFrom(c)
	if !ok {
		return ErrUnauthorized
	}
	if !principal.Has(accesstokendomain.PermissionAdmin) {
		return ErrForbidden
	}
	return nil
}

// authorizeRecord authorizes access to a stored record addressed by id. A
// denial is reported as not found so callers outside the record's guild
// cannot tell a foreign id from a missing one.
func (s *Server) authorizeRecord(c *gin.Context, guildID *string, object string, action string) error {
	err := s.authorizeScope(c, guildID, object, action)
	if errors.Is(err, ErrForbidden) || errors.Is(err, authorization.ErrForbidden) {
		return ErrNotFound
	}
	return err
}

func optionalGuild(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
