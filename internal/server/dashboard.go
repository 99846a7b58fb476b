package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	identitydomain "github.com/smallbiznis/botcentral/internal/identity/domain"
	"github.com/smallbiznis/botcentral/internal/ratelimit"
)

var premiumFeatures = []string{
	"custom_bot_tokens",
	"advanced_analytics",
	"premium_support",
}

type dashboardResponse struct {
	HasPremium  bool     `json:"hasPremium"`
	Permissions []string `json:"permissions"`
	Features    []string `json:"features"`
	TokenHint   string   `json:"tokenHint"`
}

// Dashboard authenticates with the secret in the path. The token's
// permissions are narrowed to what the owner's subscription grants now.
func (s *Server) Dashboard(c *gin.Context) {
	if err := s.allow(c, ratelimit.ScopeDashboard, c.ClientIP()); err != nil {
		AbortWithError(c, err)
		return
	}

	secret := strings.TrimSpace(c.Param("token"))
	principal, err := s.resolver.Resolve(c.Request.Context(), identitydomain.Credentials{BearerToken: secret})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	hasPremium := principal.Has(accesstokendomain.PermissionPremium)
	features := []string{}
	if hasPremium {
		features = slices.Clone(premiumFeatures)
	}

	c.JSON(http.StatusOK, dashboardResponse{
		HasPremium:  hasPremium,
		Permissions: principal.Permissions,
		Features:    features,
		TokenHint:   principal.TokenHint,
	})
}
