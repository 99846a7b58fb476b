package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("guild_id", "123"),
		attribute.String("user_id", "456"),
		attribute.String("action", "ban"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "guild_id" && attrs[1].Key != "guild_id" {
		t.Fatalf("expected guild_id to be retained")
	}
	if attrs[0].Key != "action" && attrs[1].Key != "action" {
		t.Fatalf("expected action to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTokenValidation(context.Background(), "ok")
	m.RecordModerationAction(context.Background(), "1", "warn", "low")
	m.RecordRuleTrigger(context.Background(), "1", "automation")
	m.RecordRateLimitDenied(context.Background(), "dashboard", "exceeded")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordRuleTrigger(context.Background(), "42", "alt_detection")
	m.RecordRateLimitAllowed(context.Background(), "dashboard")
}
