package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	botdomain "github.com/smallbiznis/botcentral/internal/bot/domain"
)

func (s *Server) ListBots(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	bots, err := s.botSvc.List(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bots})
}

func (s *Server) GetBot(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	bot, err := s.botSvc.Get(c.Request.Context(), principal.UserID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bot})
}

func (s *Server) CreateBot(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req botdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	bot, err := s.botSvc.Create(c.Request.Context(), principal.UserID, principal.Has(accesstokendomain.PermissionPremium), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id := bot.ID.String()
	s.audit(c, nil, nil, "bot.created", "bot", &id, map[string]any{
		"bot_type":   bot.BotType,
		"token_hint": bot.TokenHint,
	})

	c.JSON(http.StatusCreated, gin.H{"data": bot})
}

func (s *Server) UpdateBot(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req botdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	bot, err := s.botSvc.Update(c.Request.Context(), principal.UserID, principal.Has(accesstokendomain.PermissionPremium), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "bot.updated", "bot", &id, map[string]any{
		"status":        bot.Status,
		"token_changed": req.Token != nil,
	})

	c.JSON(http.StatusOK, gin.H{"data": bot})
}

func (s *Server) DeleteBot(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.botSvc.Delete(c.Request.Context(), principal.UserID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "bot.deleted", "bot", &id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "bot deleted"})
}

func (s *Server) StandardBotConfig(c *gin.Context) {
	cfg, err := s.botSvc.StandardConfig(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func (s *Server) SetStandardBotToken(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !principal.Has(accesstokendomain.PermissionAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req botdomain.StandardTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	cfg, err := s.botSvc.SetStandardToken(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "standard_bot.token_updated", "standard_bot", nil, map[string]any{
		"token_hint": cfg.TokenHint,
	})

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}
