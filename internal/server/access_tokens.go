package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
)

func (s *Server) ListAccessTokens(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	tokens, err := s.tokenSvc.List(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokens})
}

func (s *Server) CreateAccessToken(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req accesstokendomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.tokenSvc.Issue(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tokenID := resp.Token.ID
	s.audit(c, nil, nil, "access_token.issued", "access_token", &tokenID, map[string]any{
		"name":        resp.Token.Name,
		"permissions": resp.Token.Permissions,
	})

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateAccessToken(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req accesstokendomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.tokenSvc.Update(c.Request.Context(), principal.UserID, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "access_token.updated", "access_token", &id, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeAccessToken(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.tokenSvc.Revoke(c.Request.Context(), principal.UserID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "access_token.revoked", "access_token", &id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func (s *Server) DeleteAccessToken(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.tokenSvc.Delete(c.Request.Context(), principal.UserID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "access_token.deleted", "access_token", &id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "token deleted"})
}
