package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aidashboard/dashboard-auth/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "dashboard-auth"

type AppMetrics struct {
	authLoginCounter      metric.Int64Counter
	authRefreshCounter    metric.Int64Counter
	authLogoutCounter     metric.Int64Counter
	otpEventCounter       metric.Int64Counter
	repositoryOpCounter   metric.Int64Counter
	accessTokenCounter    metric.Int64Counter
	emailDispatchCounter  metric.Int64Counter
	rateLimitCounter      metric.Int64Counter
	passwordHashHistogram metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		name   string
		target *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.refresh.attempts", &m.authRefreshCounter},
		{"auth.logout.attempts", &m.authLogoutCounter},
		{"auth.otp.events", &m.otpEventCounter},
		{"repository.operations", &m.repositoryOpCounter},
		{"auth.access_token.validations", &m.accessTokenCounter},
		{"email.dispatch.events", &m.emailDispatchCounter},
		{"http.rate_limit.decisions", &m.rateLimitCounter},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	m.passwordHashHistogram, err = meter.Float64Histogram("auth.password_hash.duration", metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create password hash histogram: %w", err)
	}
	return &m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, provider, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

func RecordAuthRefresh(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthLogout(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordOTPEvent counts issue/verify outcomes per purpose (verify, reset).
func RecordOTPEvent(ctx context.Context, purpose, event string) {
	m := current()
	if m == nil {
		return
	}
	m.otpEventCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("purpose", purpose),
			attribute.String("event", event),
		),
	)
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := current()
	if m == nil {
		return
	}
	m.accessTokenCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("source", source),
		),
	)
}

func RecordEmailDispatch(ctx context.Context, template, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.emailDispatchCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("template", template),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordPasswordHashDuration(ctx context.Context, op string, ms float64) {
	m := current()
	if m == nil {
		return
	}
	m.passwordHashHistogram.Record(ctx, ms, metric.WithAttributes(attribute.String("operation", op)))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
		),
	)
}
