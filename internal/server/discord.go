package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	discorddomain "github.com/smallbiznis/botcentral/internal/discord/domain"
	"go.uber.org/zap"
)

const discordConnectionPath = "/discord-connection"

func (s *Server) DiscordAuth(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	authURL, err := s.discordSvc.AuthURL(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

// DiscordCallback finishes the OAuth flow. Outcomes are reported to the
// browser through redirect query params; provider errors are never echoed.
func (s *Server) DiscordCallback(c *gin.Context) {
	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		s.redirectDiscord(c, url.Values{"error": {"discord_denied"}, "reason": {providerErr}})
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" {
		AbortWithError(c, newValidationError("code", "required", "code is required"))
		return
	}
	if state == "" {
		AbortWithError(c, newValidationError("state", "required", "state is required"))
		return
	}

	userID, err := s.discordSvc.VerifyState(c.Request.Context(), state)
	if err != nil {
		s.log.Warn("discord oauth state rejected", zap.Error(err))
		s.redirectDiscord(c, url.Values{"error": {"invalid_state"}})
		return
	}

	conn, err := s.discordSvc.Connect(c.Request.Context(), userID, code)
	if err != nil {
		s.log.Warn("discord oauth connect failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		s.redirectDiscord(c, url.Values{"error": {"auth_failed"}})
		return
	}

	s.log.Info("discord account connected",
		zap.String("user_id", userID.String()),
		zap.String("discord_user_id", conn.DiscordUserID),
	)
	s.redirectDiscord(c, url.Values{"connected": {"true"}})
}

func (s *Server) redirectDiscord(c *gin.Context, params url.Values) {
	target := s.cfg.PublicBaseURL + discordConnectionPath + "?" + params.Encode()
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func (s *Server) GetDiscordConnection(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	conn, err := s.discordSvc.GetConnection(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": conn})
}

func (s *Server) ListDiscordServers(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	servers, err := s.discordSvc.ListServers(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": servers})
}

func (s *Server) SelectDiscordServer(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req discorddomain.SelectServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	server, err := s.discordSvc.SelectServer(c.Request.Context(), principal.UserID, req.ServerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": server})
}

func (s *Server) DisconnectDiscord(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.discordSvc.Disconnect(c.Request.Context(), principal.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "discord disconnected"})
}
