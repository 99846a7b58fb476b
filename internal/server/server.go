package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/botcentral/internal/accesstoken"
	accesstokendomain "github.com/smallbiznis/botcentral/internal/accesstoken/domain"
	"github.com/smallbiznis/botcentral/internal/audit"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/internal/auth"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/auth/session"
	"github.com/smallbiznis/botcentral/internal/authorization"
	"github.com/smallbiznis/botcentral/internal/automation"
	automationdomain "github.com/smallbiznis/botcentral/internal/automation/domain"
	"github.com/smallbiznis/botcentral/internal/bot"
	botdomain "github.com/smallbiznis/botcentral/internal/bot/domain"
	"github.com/smallbiznis/botcentral/internal/community"
	communitydomain "github.com/smallbiznis/botcentral/internal/community/domain"
	"github.com/smallbiznis/botcentral/internal/config"
	"github.com/smallbiznis/botcentral/internal/discord"
	discorddomain "github.com/smallbiznis/botcentral/internal/discord/domain"
	"github.com/smallbiznis/botcentral/internal/identity"
	identitydomain "github.com/smallbiznis/botcentral/internal/identity/domain"
	"github.com/smallbiznis/botcentral/internal/loggingconfig"
	loggingconfigdomain "github.com/smallbiznis/botcentral/internal/loggingconfig/domain"
	"github.com/smallbiznis/botcentral/internal/moderation"
	moderationdomain "github.com/smallbiznis/botcentral/internal/moderation/domain"
	"github.com/smallbiznis/botcentral/internal/observability"
	obsmiddleware "github.com/smallbiznis/botcentral/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/botcentral/internal/observability/metrics"
	obstracing "github.com/smallbiznis/botcentral/internal/observability/tracing"
	"github.com/smallbiznis/botcentral/internal/poll"
	polldomain "github.com/smallbiznis/botcentral/internal/poll/domain"
	"github.com/smallbiznis/botcentral/internal/ratelimit"
	"github.com/smallbiznis/botcentral/internal/role"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	"github.com/smallbiznis/botcentral/internal/secretbox"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	session.Module,
	secretbox.Module,
	accesstoken.Module,
	identity.Module,
	role.Module,
	moderation.Module,
	automation.Module,
	loggingconfig.Module,
	poll.Module,
	bot.Module,
	community.Module,
	discord.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	authsvc       authdomain.Service
	sessions      *session.Manager
	resolver      identitydomain.Resolver
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	tokenSvc      accesstokendomain.Service
	roleSvc       roledomain.Service
	moderationSvc moderationdomain.Service
	automationSvc automationdomain.Service
	loggingSvc    loggingconfigdomain.Service
	pollSvc       polldomain.Service
	botSvc        botdomain.Service
	communitySvc  communitydomain.Service
	discordSvc    discorddomain.Service
	limiter       *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	Resolver      identitydomain.Resolver
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	TokenSvc      accesstokendomain.Service
	RoleSvc       roledomain.Service
	ModerationSvc moderationdomain.Service
	AutomationSvc automationdomain.Service
	LoggingSvc    loggingconfigdomain.Service
	PollSvc       polldomain.Service
	BotSvc        botdomain.Service
	CommunitySvc  communitydomain.Service
	DiscordSvc    discorddomain.Service
	Limiter       *ratelimit.Limiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		resolver:      p.Resolver,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		tokenSvc:      p.TokenSvc,
		roleSvc:       p.RoleSvc,
		moderationSvc: p.ModerationSvc,
		automationSvc: p.AutomationSvc,
		loggingSvc:    p.LoggingSvc,
		pollSvc:       p.PollSvc,
		botSvc:        p.BotSvc,
		communitySvc:  p.CommunitySvc,
		discordSvc:    p.DiscordSvc,
		limiter:       p.Limiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerGuildRoutes()
	svc.registerCommunityRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/user", s.RequireAuth(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/dashboard/stats", s.RequireAuth(), s.DashboardStats)
	api.GET("/dashboard/:token", s.Dashboard)
	api.GET("/discord/callback", s.DiscordCallback)

	api.GET("/user/subscription", s.OptionalAuth(), s.GetUserSubscription)
	api.POST("/subscription/create", s.RequireAuth(), s.CreateSubscription)

	tokens := api.Group("/personal-access-tokens", s.RequireAuth(), s.RequireSession())
	{
		tokens.GET("", s.ListAccessTokens)
		tokens.POST("", s.CreateAccessToken)
		tokens.PUT("/:id", s.UpdateAccessToken)
		tokens.POST("/:id/revoke", s.RevokeAccessToken)
		tokens.DELETE("/:id", s.DeleteAccessToken)
	}

	discord := api.Group("/discord", s.RequireAuth())
	{
		discord.GET("/auth", s.DiscordAuth)
		discord.GET("/connection", s.GetDiscordConnection)
		discord.DELETE("/connection", s.DisconnectDiscord)
		discord.GET("/servers", s.ListDiscordServers)
		discord.POST("/select-server", s.SelectDiscordServer)
	}
}

func (s *Server) registerGuildRoutes() {
	api := s.engine.Group("/api", s.RequireAuth())

	// -------- Roles --------
	api.GET("/moderation/roles", s.ListUserRoles)
	api.GET("/moderation/roles/check", s.CheckUserRole)
	api.POST("/moderation/roles", s.CreateUserRole)
	api.PUT("/moderation/roles/:id", s.UpdateUserRole)
	api.DELETE("/moderation/roles/:id", s.DeleteUserRole)

	// -------- Moderation Logs --------
	api.GET("/moderation/logs", s.ListModerationLogs)
	api.POST("/moderation/logs", s.RecordModerationLog)
	api.POST("/moderation/logs/:id/revert", s.RevertModerationLog)

	// -------- Content Filters --------
	api.GET("/moderation/filters", s.ListContentFilters)
	api.GET("/moderation/filters/effective", s.EffectiveContentFilters)
	api.POST("/moderation/filters", s.CreateContentFilter)
	api.PUT("/moderation/filters/:id", s.UpdateContentFilter)
	api.DELETE("/moderation/filters/:id", s.DeleteContentFilter)

	// -------- Reports --------
	api.GET("/moderation/reports", s.ListReports)
	api.POST("/moderation/reports", s.CreateReport)
	api.PUT("/moderation/reports/:id", s.UpdateReport)

	// -------- Automation Rules --------
	api.GET("/automation/rules", s.ListAutomationRules)
	api.POST("/automation/rules", s.CreateAutomationRule)
	api.POST("/automation/rules/evaluate", s.EvaluateAutomationRules)
	api.GET("/automation/rules/:id", s.GetAutomationRule)
	api.PUT("/automation/rules/:id", s.UpdateAutomationRule)
	api.DELETE("/automation/rules/:id", s.DeleteAutomationRule)
	api.POST("/automation/rules/:id/trigger", s.TriggerAutomationRule)

	// -------- Alt Detection --------
	api.GET("/alt-detection/rules", s.ListAltDetectionRules)
	api.POST("/alt-detection/rules", s.CreateAltDetectionRule)
	api.GET("/alt-detection/rules/:id", s.GetAltDetectionRule)
	api.PUT("/alt-detection/rules/:id", s.UpdateAltDetectionRule)
	api.DELETE("/alt-detection/rules/:id", s.DeleteAltDetectionRule)
	api.POST("/alt-detection/rules/:id/trigger", s.TriggerAltDetectionRule)

	// -------- Auto Roles --------
	api.GET("/auto-roles", s.ListAutoRoles)
	api.POST("/auto-roles", s.CreateAutoRole)
	api.PUT("/auto-roles/:id", s.UpdateAutoRole)
	api.DELETE("/auto-roles/:id", s.DeleteAutoRole)
	api.GET("/users/:userId/auto-roles", s.ListUserAutoRoles)
	api.POST("/users/:userId/auto-roles", s.AssignUserAutoRole)
	api.DELETE("/users/:userId/auto-roles/:autoRoleId", s.RemoveUserAutoRole)

	// -------- Logging --------
	api.GET("/logging/configs", s.ListLoggingConfigs)
	api.POST("/logging/configs", s.CreateLoggingConfig)
	api.GET("/logging/configs/:id", s.GetLoggingConfig)
	api.PUT("/logging/configs/:id", s.UpdateLoggingConfig)
	api.DELETE("/logging/configs/:id", s.DeleteLoggingConfig)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerCommunityRoutes() {
	api := s.engine.Group("/api")
	authed := api.Group("", s.RequireAuth())

	// -------- Polls --------
	api.GET("/polls", s.ListPolls)
	api.GET("/polls/:id", s.GetPoll)
	api.GET("/polls/:id/options", s.ListPollOptions)
	api.GET("/polls/:id/results", s.PollResults)
	authed.POST("/polls", s.CreatePoll)
	authed.PUT("/polls/:id", s.UpdatePoll)
	authed.DELETE("/polls/:id", s.DeletePoll)
	authed.POST("/polls/:id/options", s.AddPollOption)
	authed.POST("/polls/:id/vote", s.VotePoll)
	authed.GET("/polls/:id/my-vote", s.MyPollVote)

	// -------- Bots --------
	authed.GET("/bots", s.ListBots)
	authed.POST("/bots", s.CreateBot)
	authed.GET("/bots/:id", s.GetBot)
	authed.PUT("/bots/:id", s.UpdateBot)
	authed.DELETE("/bots/:id", s.DeleteBot)
	api.GET("/standard-bot/config", s.StandardBotConfig)
	authed.POST("/standard-bot/token", s.SetStandardBotToken)

	// -------- Events & Announcements --------
	api.GET("/events", s.ListEvents)
	authed.POST("/events", s.CreateEvent)
	authed.PUT("/events/:id", s.UpdateEvent)
	authed.DELETE("/events/:id", s.DeleteEvent)
	api.GET("/announcements", s.ListAnnouncements)
	authed.POST("/announcements", s.CreateAnnouncement)

	authed.GET("/activity-logs", s.ListActivity)
}
