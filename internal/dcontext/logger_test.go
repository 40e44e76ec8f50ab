package dcontext

import (
	"context"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestGetLoggerReturnsDefaultWhenAbsent(t *testing.T) {
	logger := GetLogger(context.Background())
	if logger == nil {
		t.Fatalf("GetLogger returned nil")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	entry := logrus.NewEntry(logrus.New()).WithField("component", "test")
	ctx := WithLogger(context.Background(), entry)
	got, ok := GetLogger(ctx).(*logrus.Entry)
	if !ok {
		t.Fatalf("GetLogger did not return a *logrus.Entry")
	}
	if got.Data["component"] != "test" {
		t.Fatalf("GetLogger lost the field stashed by WithLogger: %v", got.Data)
	}
}

func TestWithValues(t *testing.T) {
	ctx := WithValues(context.Background(), map[any]any{"collection": "metrics"})
	if got := Value(ctx, "collection"); got != "metrics" {
		t.Fatalf("Value(collection) = %v, want metrics", got)
	}
}

func TestGetLoggerWithFieldAddsFieldWithoutMutatingContext(t *testing.T) {
	ctx := context.Background()
	logger := GetLoggerWithField(ctx, "series", "Brussels")
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("GetLoggerWithField did not return a *logrus.Entry")
	}
	if entry.Data["series"] != "Brussels" {
		t.Fatalf("GetLoggerWithField lost the field: %v", entry.Data)
	}
	if GetLogger(ctx) == logger {
		t.Fatalf("GetLoggerWithField must not affect the context's own logger")
	}
}

func TestGetLoggerWithFieldsAddsEveryField(t *testing.T) {
	logger := GetLoggerWithFields(context.Background(), map[any]any{"collection": "metrics", "label": "Brussels"})
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("GetLoggerWithFields did not return a *logrus.Entry")
	}
	if entry.Data["collection"] != "metrics" || entry.Data["label"] != "Brussels" {
		t.Fatalf("GetLoggerWithFields lost fields: %v", entry.Data)
	}
}

func TestSetDefaultLoggerAffectsFutureLookups(t *testing.T) {
	entry := logrus.NewEntry(logrus.New()).WithField("component", "gc")
	SetDefaultLogger(entry)
	t.Cleanup(func() {
		SetDefaultLogger(logrus.StandardLogger().WithField("go.version", runtime.Version()))
	})

	got, ok := GetLogger(context.Background()).(*logrus.Entry)
	if !ok {
		t.Fatalf("GetLogger did not return a *logrus.Entry")
	}
	if got.Data["component"] != "gc" {
		t.Fatalf("GetLogger did not pick up the new default logger: %v", got.Data)
	}
}
