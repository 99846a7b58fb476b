package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botcentral/internal/authorization"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
)

func (s *Server) ListUserRoles(c *gin.Context) {
	var req roledomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeScope(c, optionalGuild(req.GuildID), authorization.ObjectUserRole, authorization.ActionUserRoleView); err != nil {
		AbortWithError(c, err)
		return
	}

	roles, err := s.roleSvc.ListRoles(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": roles})
}

type checkRoleQuery struct {
	UserID  string `form:"userId" binding:"required"`
	GuildID string `form:"guildId" binding:"required"`
	Role    string `form:"role" binding:"required"`
}

func (s *Server) CheckUserRole(c *gin.Context) {
	var query checkRoleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	userID, err := parseOptionalSnowflakeID(query.UserID)
	if err != nil || userID == nil {
		AbortWithError(c, roledomain.ErrInvalidUserID)
		return
	}

	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if principal.UserID != *userID {
		if err := s.authorizeGuild(c, query.GuildID, authorization.ObjectUserRole, authorization.ActionUserRoleView); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	hasRole, err := s.roleSvc.HasRole(c.Request.Context(), *userID, strings.TrimSpace(query.GuildID), query.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hasRole": hasRole})
}

func (s *Server) CreateUserRole(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req roledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeScope(c, req.GuildID, authorization.ObjectUserRole, authorization.ActionUserRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	role, err := s.roleSvc.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	roleID := role.ID.String()
	s.audit(c, role.GuildID, nil, "user_role.granted", "user_role", &roleID, map[string]any{
		"user_id": role.UserID.String(),
		"role":    role.Role,
	})

	c.JSON(http.StatusCreated, gin.H{"data": role})
}

func (s *Server) UpdateUserRole(c *gin.Context) {
	var req roledomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.roleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, existing.GuildID, authorization.ObjectUserRole, authorization.ActionUserRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	role, err := s.roleSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, role.GuildID, nil, "user_role.updated", "user_role", &id, map[string]any{
		"user_id":   role.UserID.String(),
		"role":      role.Role,
		"is_active": role.IsActive,
	})

	c.JSON(http.StatusOK, gin.H{"data": role})
}

func (s *Server) DeleteUserRole(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.roleSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, existing.GuildID, authorization.ObjectUserRole, authorization.ActionUserRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.roleSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, existing.GuildID, nil, "user_role.deleted", "user_role", &id, map[string]any{
		"user_id": existing.UserID.String(),
		"role":    existing.Role,
	})

	c.JSON(http.StatusOK, gin.H{"message": "role deleted"})
}
