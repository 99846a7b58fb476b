package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botcentral/internal/authorization"
	loggingconfigdomain "github.com/smallbiznis/botcentral/internal/loggingconfig/domain"
)

func (s *Server) ListLoggingConfigs(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectLoggingConfig, authorization.ActionLoggingConfigView); err != nil {
		AbortWithError(c, err)
		return
	}

	configs, err := s.loggingSvc.List(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": configs})
}

func (s *Server) GetLoggingConfig(c *gin.Context) {
	cfg, err := s.loggingSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &cfg.GuildID, authorization.ObjectLoggingConfig, authorization.ActionLoggingConfigView); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func (s *Server) CreateLoggingConfig(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req loggingconfigdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectLoggingConfig, authorization.ActionLoggingConfigManage); err != nil {
		AbortWithError(c, err)
		return
	}

	cfg, err := s.loggingSvc.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": cfg})
}

func (s *Server) UpdateLoggingConfig(c *gin.Context) {
	var req loggingconfigdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.loggingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectLoggingConfig, authorization.ActionLoggingConfigManage); err != nil {
		AbortWithError(c, err)
		return
	}

	cfg, err := s.loggingSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func (s *Server) DeleteLoggingConfig(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.loggingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectLoggingConfig, authorization.ActionLoggingConfigManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.loggingSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logging config deleted"})
}
