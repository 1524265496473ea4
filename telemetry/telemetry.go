// Package telemetry installs the process-wide OpenTelemetry tracer and meter
// providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultServiceName = "authgate"

type Config struct {
	// Endpoint is the OTLP/HTTP collector base URL. A URL without a path gets
	// /v1/traces and /v1/metrics appended per signal. Empty disables export.
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Setup registers global tracer and meter providers exporting to
// cfg.Endpoint and returns a shutdown function that flushes both. With no
// endpoint it registers nothing and returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	tracesURL, err := signalURL(cfg.Endpoint, "traces")
	if err != nil {
		return noop, err
	}
	metricsURL, err := signalURL(cfg.Endpoint, "metrics")
	if err != nil {
		return noop, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return noop, err
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(tracesURL)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return noop, err
	}

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(metricsURL)}
	if cfg.Insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}

// signalURL appends /v1/<signal> to a base endpoint with no path and swaps
// the signal of an endpoint ending in /v1/traces or /v1/metrics. Any other
// path is used as given.
func signalURL(endpoint, signal string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse otlp endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("otlp endpoint %q must be an absolute URL", endpoint)
	}
	switch {
	case strings.Trim(u.Path, "/") == "":
		u.Path = "/v1/" + signal
	case strings.HasSuffix(u.Path, "/v1/traces"):
		u.Path = strings.TrimSuffix(u.Path, "traces") + signal
	case strings.HasSuffix(u.Path, "/v1/metrics"):
		u.Path = strings.TrimSuffix(u.Path, "metrics") + signal
	}
	return u.String(), nil
}
