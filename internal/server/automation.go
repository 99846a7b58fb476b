package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botcentral/internal/authorization"
	automationdomain "github.com/smallbiznis/botcentral/internal/automation/domain"
)

// -------- Automation Rules --------

func (s *Server) ListAutomationRules(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleView); err != nil {
		AbortWithError(c, err)
		return
	}

	rules, err := s.automationSvc.ListRules(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) GetAutomationRule(c *gin.Context) {
	rule, err := s.automationSvc.GetRule(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &rule.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleView); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) CreateAutomationRule(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req automationdomain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.CreateRule(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

func (s *Server) UpdateAutomationRule(c *gin.Context) {
	var req automationdomain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.UpdateRule(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) DeleteAutomationRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.automationSvc.DeleteRule(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}

func (s *Server) TriggerAutomationRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.TriggerRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) EvaluateAutomationRules(c *gin.Context) {
	var req automationdomain.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectAutomationRule, authorization.ActionAutomationRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	decisions, err := s.automationSvc.Evaluate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decisions})
}

// -------- Alt Detection --------

func (s *Server) ListAltDetectionRules(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleView); err != nil {
		AbortWithError(c, err)
		return
	}

	rules, err := s.automationSvc.ListAltRules(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules})
}

func (s *Server) GetAltDetectionRule(c *gin.Context) {
	rule, err := s.automationSvc.GetAltRule(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &rule.GuildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleView); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) CreateAltDetectionRule(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req automationdomain.CreateAltRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.CreateAltRule(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rule})
}

func (s *Server) UpdateAltDetectionRule(c *gin.Context) {
	var req automationdomain.UpdateAltRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetAltRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.UpdateAltRule(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

func (s *Server) DeleteAltDetectionRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetAltRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.automationSvc.DeleteAltRule(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}

func (s *Server) TriggerAltDetectionRule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetAltRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAltDetectionRule, authorization.ActionAltDetectionRuleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	rule, err := s.automationSvc.TriggerAltRule(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rule})
}

// -------- Auto Roles --------

func (s *Server) ListAutoRoles(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleView); err != nil {
		AbortWithError(c, err)
		return
	}

	roles, err := s.automationSvc.ListAutoRoles(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": roles})
}

func (s *Server) CreateAutoRole(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req automationdomain.CreateAutoRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	role, err := s.automationSvc.CreateAutoRole(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": role})
}

func (s *Server) UpdateAutoRole(c *gin.Context) {
	var req automationdomain.UpdateAutoRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetAutoRole(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	role, err := s.automationSvc.UpdateAutoRole(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": role})
}

func (s *Server) DeleteAutoRole(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.automationSvc.GetAutoRole(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.automationSvc.DeleteAutoRole(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "auto role deleted"})
}

func (s *Server) ListUserAutoRoles(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleView); err != nil {
		AbortWithError(c, err)
		return
	}

	assignments, err := s.automationSvc.ListUserAutoRoles(c.Request.Context(), c.Param("userId"), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assignments})
}

func (s *Server) AssignUserAutoRole(c *gin.Context) {
	var req automationdomain.AssignAutoRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	role, err := s.automationSvc.GetAutoRole(c.Request.Context(), req.AutoRoleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &role.GuildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.AssignedBy == nil {
		if principal, ok := principalFrom(c); ok {
			assignedBy := principal.UserID.String()
			req.AssignedBy = &assignedBy
		}
	}

	assignment, err := s.automationSvc.AssignUserAutoRole(c.Request.Context(), c.Param("userId"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": assignment})
}

func (s *Server) RemoveUserAutoRole(c *gin.Context) {
	autoRoleID := strings.TrimSpace(c.Param("autoRoleId"))
	role, err := s.automationSvc.GetAutoRole(c.Request.Context(), autoRoleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &role.GuildID, authorization.ObjectAutoRole, authorization.ActionAutoRoleManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.automationSvc.RemoveUserAutoRole(c.Request.Context(), c.Param("userId"), autoRoleID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "auto role removed"})
}
