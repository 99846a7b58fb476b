package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/botcentral/internal/authorization"
	moderationdomain "github.com/smallbiznis/botcentral/internal/moderation/domain"
)

// -------- Moderation Logs --------

func (s *Server) ListModerationLogs(c *gin.Context) {
	var req moderationdomain.QueryLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeScope(c, optionalGuild(req.GuildID), authorization.ObjectModerationLog, authorization.ActionModerationLogView); err != nil {
		AbortWithError(c, err)
		return
	}

	logs, err := s.moderationSvc.QueryLogs(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) RecordModerationLog(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req moderationdomain.RecordLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeScope(c, req.GuildID, authorization.ObjectModerationLog, authorization.ActionModerationLogManage); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.ModeratorID == nil || strings.TrimSpace(*req.ModeratorID) == "" {
		moderatorID := principal.UserID.String()
		req.ModeratorID = &moderatorID
	}

	entry, err := s.moderationSvc.RecordLog(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) RevertModerationLog(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.moderationSvc.GetLog(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, existing.GuildID, authorization.ObjectModerationLog, authorization.ActionModerationLogManage); err != nil {
		AbortWithError(c, err)
		return
	}

	entry, err := s.moderationSvc.RevertLog(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, entry.GuildID, nil, "moderation_log.reverted", "moderation_log", &id, map[string]any{
		"action": entry.Action,
	})

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// -------- Content Filters --------

func (s *Server) ListContentFilters(c *gin.Context) {
	guildID := optionalGuild(c.Query("guildId"))
	if err := s.authorizeScope(c, guildID, authorization.ObjectContentFilter, authorization.ActionContentFilterView); err != nil {
		AbortWithError(c, err)
		return
	}

	filters, err := s.moderationSvc.ListFilters(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": filters})
}

func (s *Server) EffectiveContentFilters(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guildId"))
	if err := s.authorizeGuild(c, guildID, authorization.ObjectContentFilter, authorization.ActionContentFilterView); err != nil {
		AbortWithError(c, err)
		return
	}

	filters, err := s.moderationSvc.EffectiveFilters(c.Request.Context(), guildID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": filters})
}

func (s *Server) CreateContentFilter(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req moderationdomain.CreateFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeScope(c, req.GuildID, authorization.ObjectContentFilter, authorization.ActionContentFilterManage); err != nil {
		AbortWithError(c, err)
		return
	}

	filter, err := s.moderationSvc.CreateFilter(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": filter})
}

func (s *Server) UpdateContentFilter(c *gin.Context) {
	var req moderationdomain.UpdateFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.moderationSvc.GetFilter(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, existing.GuildID, authorization.ObjectContentFilter, authorization.ActionContentFilterManage); err != nil {
		AbortWithError(c, err)
		return
	}

	filter, err := s.moderationSvc.UpdateFilter(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": filter})
}

func (s *Server) DeleteContentFilter(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.moderationSvc.GetFilter(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, existing.GuildID, authorization.ObjectContentFilter, authorization.ActionContentFilterManage); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.moderationSvc.DeleteFilter(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "filter deleted"})
}

// -------- Reports --------

func (s *Server) ListReports(c *gin.Context) {
	var req moderationdomain.ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectReport, authorization.ActionReportView); err != nil {
		AbortWithError(c, err)
		return
	}

	reports, err := s.moderationSvc.ListReports(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}

func (s *Server) CreateReport(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req moderationdomain.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	if err := s.authorizeGuild(c, req.GuildID, authorization.ObjectReport, authorization.ActionReportCreate); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.ReporterUserID == nil || strings.TrimSpace(*req.ReporterUserID) == "" {
		reporterID := principal.UserID.String()
		req.ReporterUserID = &reporterID
	}

	report, err := s.moderationSvc.CreateReport(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (s *Server) UpdateReport(c *gin.Context) {
	var req moderationdomain.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	existing, err := s.moderationSvc.GetReport(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.authorizeRecord(c, &existing.GuildID, authorization.ObjectReport, authorization.ActionReportManage); err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.moderationSvc.UpdateReport(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
