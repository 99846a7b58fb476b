package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	polldomain "github.com/smallbiznis/botcentral/internal/poll/domain"
)

func (s *Server) ListPolls(c *gin.Context) {
	polls, err := s.pollSvc.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": polls})
}

func (s *Server) GetPoll(c *gin.Context) {
	poll, err := s.pollSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": poll})
}

func (s *Server) CreatePoll(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req polldomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	poll, err := s.pollSvc.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id := poll.ID.String()
	s.audit(c, nil, nil, "poll.created", "poll", &id, map[string]any{
		"category": poll.Category,
		"options":  len(poll.Options),
	})

	c.JSON(http.StatusCreated, gin.H{"data": poll})
}

func (s *Server) UpdatePoll(c *gin.Context) {
	var req polldomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizePollOwner(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	poll, err := s.pollSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "poll.updated", "poll", &id, map[string]any{"is_active": poll.IsActive})

	c.JSON(http.StatusOK, gin.H{"data": poll})
}

func (s *Server) DeletePoll(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizePollOwner(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.pollSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, nil, "poll.deleted", "poll", &id, nil)

	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}

func (s *Server) ListPollOptions(c *gin.Context) {
	options, err := s.pollSvc.ListOptions(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options})
}

func (s *Server) AddPollOption(c *gin.Context) {
	var req polldomain.AddOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.authorizePollOwner(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	option, err := s.pollSvc.AddOption(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": option})
}

func (s *Server) VotePoll(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req polldomain.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	vote, err := s.pollSvc.Vote(c.Request.Context(), strings.TrimSpace(c.Param("id")), principal.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": vote})
}

func (s *Server) MyPollVote(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	vote, err := s.pollSvc.MyVote(c.Request.Context(), strings.TrimSpace(c.Param("id")), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vote})
}

func (s *Server) PollResults(c *gin.Context) {
	results, err := s.pollSvc.Results(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// authorizePollOwner lets the poll's creator or an admin manage it.
func (s *Server) authorizePollOwner(c *gin.Context, id string) error {
	principal, ok := principalFrom(c)
	if !ok {
		return ErrUnauthorized
	}
	poll, err := s.pollSvc.Get(c.Request.Context(), id)
	if err != nil {
		return err
	}
	return requireOwnerOrAdmin(principal.UserID, poll.CreatedBy, principal.Has(accesstokendomain.PermissionAdmin))
}

func requireOwnerOrAdmin(caller, owner snowflake.ID, admin bool) error {
	if caller == owner || admin {
		return nil
	}
	return ErrForbidden
}
