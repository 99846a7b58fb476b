package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/config"
	identitydomain "github.com/smallbiznis/botcentral/internal/identity/domain"
)

type subscriptionResponse struct {
	SubscriptionTier      string     `json:"subscriptionTier"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
	TokenAuth             bool       `json:"tokenAuth"`
}

func (s *Server) GetUserSubscription(c *gin.Context) {
	resp := subscriptionResponse{
		SubscriptionTier:   config.TierFree,
		SubscriptionStatus: authdomain.SubscriptionStatusActive,
	}

	principal, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusOK, resp)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), principal.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user.SubscriptionTier != "" {
		resp.SubscriptionTier = user.SubscriptionTier
	}
	if user.SubscriptionStatus != "" {
		resp.SubscriptionStatus = user.SubscriptionStatus
	}
	resp.SubscriptionExpiresAt = user.SubscriptionExpiresAt

	if principal.AuthMethod == identitydomain.AuthMethodToken && principal.Has(accesstokendomain.PermissionPremium) {
		resp.SubscriptionTier = accesstokendomain.PermissionPremium
		resp.TokenAuth = true
	}

	c.JSON(http.StatusOK, resp)
}

// CreateSubscription is a placeholder until a payment provider is wired.
func (s *Server) CreateSubscription(c *gin.Context) {
	AbortWithError(c, ErrNotImplemented)
}
