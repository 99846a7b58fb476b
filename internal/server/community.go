package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	communitydomain "github.com/smallbiznis/botcentral/internal/community/domain"
)

const (
	activityLimit     = 20
	dashboardActivity = 5
	dashboardUpcoming = 3
)

func (s *Server) ListEvents(c *gin.Context) {
	events, err := s.communitySvc.ListEvents(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

func (s *Server) CreateEvent(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req communitydomain.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	event, err := s.communitySvc.CreateEvent(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id := event.ID.String()
	s.audit(c, nil, nil, "event.created", "event", &id, nil)

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (s *Server) UpdateEvent(c *gin.Context) {
	var req communitydomain.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizeEventOwner(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.communitySvc.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "event.updated", "event", &id, nil)

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) DeleteEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizeEventOwner(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.communitySvc.DeleteEvent(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "event.deleted", "event", &id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

func (s *Server) ListAnnouncements(c *gin.Context) {
	announcements, err := s.communitySvc.ListAnnouncements(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": announcements})
}

func (s *Server) CreateAnnouncement(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req communitydomain.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	if req.IsPinned && !principal.Has(accesstokendomain.PermissionAdmin) {
		AbortWithError(c, ErrForbidden)
		return
	}

	announcement, err := s.communitySvc.CreateAnnouncement(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id := announcement.ID.String()
	s.audit(c, nil, nil, "announcement.created", "announcement", &id, map[string]any{"is_pinned": announcement.IsPinned})

	c.JSON(http.StatusCreated, gin.H{"data": announcement})
}

// ListActivity returns the caller's own audit trail across guilds.
func (s *Server) ListActivity(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	logs, err := s.auditSvc.ListActivity(c.Request.Context(), principal.UserID.String(), activityLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) DashboardStats(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	stats, err := s.botSvc.Stats(ctx, principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	upcoming, err := s.communitySvc.UpcomingEvents(ctx, dashboardUpcoming)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	activity, err := s.auditSvc.ListActivity(ctx, principal.UserID.String(), dashboardActivity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"activeBots":     stats.ActiveBots,
		"totalServers":   stats.TotalServers,
		"activeUsers":    stats.ActiveUsers,
		"upcomingEvents": upcoming,
		"recentActivity": activity,
	}})
}

func (s *Server) authorizeEventOwner(c *gin.Context, id string) error {
	principal, ok := principalFrom(c)
	if !ok {
		return ErrUnauthorized
	}
	event, err := s.communitySvc.GetEvent(c.Request.Context(), id)
	if err != nil {
		return err
	}
	return requireOwnerOrAdmin(principal.UserID, event.CreatedBy, principal.Has(accesstokendomain.PermissionAdmin))
}
