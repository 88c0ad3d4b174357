package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsUnboundedLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "tags"),
		attribute.String("account_id", "2f3c1c9e-6c1b-4a55-9a55-4b1d0b8e2a10"),
		attribute.String("result", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "account_id" {
			t.Fatalf("expected account_id to be dropped")
		}
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "analytics"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordRebuild(context.Background(), "subscriptions", ResultSuccess)
	m.RecordReportRequest(context.Background(), "AVERAGE_WEEKLY", ResultFailure)
	m.RecordRefreshEvent(context.Background(), "TAG_CREATION", "tags")
}
