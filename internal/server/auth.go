package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"go.uber.org/zap"
)

func (s *Server) Register(c *gin.Context) {
	var req authdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	userID := user.ID.String()
	s.audit(c, nil, &userID, "user.registered", "user", &userID, map[string]any{
		"email": user.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"data": user})
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	email := strings.TrimSpace(req.Email)
	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		s.audit(c, nil, nil, "user.login_failed", "user", nil, map[string]any{
			"email": email,
		})
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	userID := result.User.ID.String()
	s.audit(c, nil, &userID, "user.login", "user", &userID, map[string]any{
		"email": email,
	})

	c.JSON(http.StatusOK, gin.H{"data": result.User})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user":        user,
			"authMethod":  principal.AuthMethod,
			"permissions": principal.Permissions,
		},
	})
}

// audit writes a best-effort audit entry for the current request.
func (s *Server) audit(c *gin.Context, guildID *string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorType := string(auditdomain.ActorTypeUser)
	if principal, ok := principalFrom(c); ok {
		if actorID == nil {
			id := principal.UserID.String()
			actorID = &id
		}
		if principal.TokenID != nil {
			actorType = string(auditdomain.ActorTypeToken)
		}
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), guildID, actorType, actorID, action, targetType, targetID, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
