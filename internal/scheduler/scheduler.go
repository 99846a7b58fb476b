package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/botcentral/internal/audit/domain"
	"github.com/smallbiznis/botcentral/internal/auditcontext"
	authdomain "github.com/smallbiznis/botcentral/internal/auth/domain"
	"github.com/smallbiznis/botcentral/internal/clock"
	obsmetrics "github.com/smallbiznis/botcentral/internal/observability/metrics"
	roledomain "github.com/smallbiznis/botcentral/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireRoles   = "expire_roles"
	JobPurgeSessions = "purge_sessions"

	systemActorType = string(auditdomain.ActorTypeSystem)
	systemActorID   = "scheduler"

	jobTimeout = 30 * time.Second
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	RoleSvc  roledomain.Service
	AuthSvc  authdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

// Scheduler runs periodic housekeeping over the role ledger and sessions.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	genID    *snowflake.Node
	roleSvc  roledomain.Service
	authSvc  authdomain.Service
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.RoleSvc == nil || p.AuthSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		genID:    p.GenID,
		roleSvc:  p.RoleSvc,
		authSvc:  p.AuthSvc,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, systemActorType, systemActorID)
	ctx, run := s.startJobRun(ctx, name, batchSize)
	s.logJobStart(ctx, run)

	err := fn(ctx)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)

	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		s.metrics.RecordJobRun(ctx, name, "ok", elapsed)
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobRun(ctx, name, "timeout", elapsed)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.RecordJobRun(ctx, name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job a single time and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpireRoles, func(ctx context.Context) error {
			return s.runJob(ctx, JobExpireRoles, s.cfg.BatchSize, jobTimeout, s.ExpireRolesJob)
		}},
		{JobPurgeSessions, func(ctx context.Context) error {
			return s.runJob(ctx, JobPurgeSessions, s.cfg.BatchSize, jobTimeout, s.PurgeSessionsJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// ExpireRolesJob deactivates lapsed role grants and audits each one.
func (s *Scheduler) ExpireRolesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	expired, err := s.roleSvc.ExpireLapsed(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	run.AddProcessed(len(expired))

	if s.auditSvc == nil {
		return nil
	}
	for _, grant := range expired {
		targetID := grant.ID.String()
		metadata := map[string]any{
			"user_id": grant.UserID.String(),
			"role":    grant.Role,
		}
		if grant.ExpiresAt != nil {
			metadata["expires_at"] = grant.ExpiresAt.UTC().Format(time.RFC3339)
		}
		if err := s.auditSvc.AuditLog(ctx, grant.GuildID, "", nil, "user_role.expired", "user_role", &targetID, metadata); err != nil {
			run.IncError()
			s.logger(ctx).Warn("failed to audit expired role grant",
				zap.String("role_id", targetID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// PurgeSessionsJob deletes sessions that ended before the retention window.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	deleted, err := s.authSvc.PurgeSessions(ctx, s.cfg.SessionRetention)
	if err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(int(deleted))
	return nil
}
