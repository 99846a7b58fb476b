package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: StoreErrorDeadlineExceeded},
		{name: "not_found", err: fmt.Errorf("load: %w", gorm.ErrRecordNotFound), want: StoreErrorNotFound},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: StoreErrorLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: StoreErrorSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: StoreErrorUniqueViolation},
		{name: "pg_unique_violation", err: &pgconn.PgError{Code: "23505"}, want: StoreErrorUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: StoreErrorUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyStoreError(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAccessMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newAccessMetrics(registry, Config{ServiceName: "test", Environment: "test"})

	m.IncDecision("moderation_log", "moderation_log.manage", DecisionGranted)
	m.IncDecision("moderation_log", "moderation_log.manage", DecisionGranted)
	m.IncDecision("report", "report.view", DecisionDenied)
	m.IncStoreError("role", &pgconn.PgError{Code: "40001"})
	m.IncStoreError("role", nil)

	granted := testutil.ToFloat64(m.decisions.WithLabelValues("moderation_log", "moderation_log.manage", DecisionGranted))
	if granted != 2 {
		t.Fatalf("expected 2 granted decisions, got %v", granted)
	}
	denied := testutil.ToFloat64(m.decisions.WithLabelValues("report", "report.view", DecisionDenied))
	if denied != 1 {
		t.Fatalf("expected 1 denied decision, got %v", denied)
	}
	storeErrs := testutil.ToFloat64(m.storeErrors.WithLabelValues("role", StoreErrorSerializationFailure))
	if storeErrs != 1 {
		t.Fatalf("expected 1 store error, got %v", storeErrs)
	}
}
