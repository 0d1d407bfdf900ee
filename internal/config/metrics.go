package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type loadStage string

const (
	stageEnvFile  loadStage = "env_file"
	stageParse    loadStage = "parse"
	stageValidate loadStage = "validation"
)

// stageError tags a Load failure with the step that produced it. The
// message is the wrapped error's, unchanged.
type stageError struct {
	stage loadStage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage loadStage, err error) error {
	return &stageError{stage: stage, err: err}
}

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

func recordConfigValidationEvent(ctx context.Context, profile string, err error) {
	configMetricsOnce.Do(func() {
		counter, cerr := otel.Meter("dashboard-auth").Int64Counter("config.validation.events")
		if cerr == nil {
			configCounter = counter
		}
	})
	if configCounter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	configCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profileLabel(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", classifyConfigLoadError(err)),
	))
}

// profileLabel keeps the metric label set closed: anything but the known
// deployment profiles is reported as "other".
func profileLabel(profile string) string {
	switch v := strings.ToLower(strings.TrimSpace(profile)); v {
	case "":
		return "unknown"
	case "development", "test", "staging", "production":
		return v
	default:
		return "other"
	}
}

func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	var se *stageError
	if errors.As(err, &se) {
		return string(se.stage)
	}
	return "load"
}
