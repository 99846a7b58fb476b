package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	DecisionGranted = "granted"
	DecisionDenied  = "denied"
)

const (
	StoreErrorDeadlineExceeded     = "deadline_exceeded"
	StoreErrorNotFound             = "not_found"
	StoreErrorLockTimeout          = "db_lock_timeout"
	StoreErrorSerializationFailure = "serialization_failure"
	StoreErrorUniqueViolation      = "unique_violation"
	StoreErrorUnknown              = "unknown"
)

// AccessMetrics counts authorization decisions and store failures for the
// Prometheus scrape endpoint.
type AccessMetrics struct {
	decisions   *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	evaluations *prometheus.CounterVec
}

var (
	accessMetricsOnce sync.Once
	accessMetrics     *AccessMetrics
)

// Access returns the process-wide access metrics.
func Access() *AccessMetrics {
	return AccessWithConfig(Config{})
}

// AccessWithConfig returns the singleton registered with config labels.
func AccessWithConfig(cfg Config) *AccessMetrics {
	accessMetricsOnce.Do(func() {
		accessMetrics = newAccessMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return accessMetrics
}

func newAccessMetrics(registerer prometheus.Registerer, cfg Config) *AccessMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "botcentral"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "botcentral_authorization_decisions_total",
		Help:        "Guild authorization decisions by object, action and outcome.",
		ConstLabels: constLabels,
	}, []string{"object", "action", "decision"})
	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "botcentral_store_errors_total",
		Help:        "Store failures by component and low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"component", "reason"})
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "botcentral_rule_evaluations_total",
		Help:        "Rule engine decisions by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	registerer.MustRegister(decisions, storeErrors, evaluations)

	return &AccessMetrics{
		decisions:   decisions,
		storeErrors: storeErrors,
		evaluations: evaluations,
	}
}

// IncDecision records one authorization decision.
func (m *AccessMetrics) IncDecision(object, action, decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(object, action, decision).Inc()
}

// IncStoreError records a failed store call.
func (m *AccessMetrics) IncStoreError(component string, err error) {
	if m == nil || err == nil || m.storeErrors == nil {
		return
	}
	m.storeErrors.WithLabelValues(component, ClassifyStoreError(err)).Inc()
}

// IncEvaluation records one rule engine decision.
func (m *AccessMetrics) IncEvaluation(outcome string) {
	if m == nil || m.evaluations == nil {
		return
	}
	m.evaluations.WithLabelValues(outcome).Inc()
}

// ClassifyStoreError maps a store error to a low-cardinality reason.
func ClassifyStoreError(err error) string {
	if err == nil {
		return StoreErrorUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return StoreErrorDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StoreErrorNotFound
	}
	if hasPGCode(err, "55P03") {
		return StoreErrorLockTimeout
	}
	if hasPGCode(err, "40001") {
		return StoreErrorSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return StoreErrorUniqueViolation
	}
	return StoreErrorUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
