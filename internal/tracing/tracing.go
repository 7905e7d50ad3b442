// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing wires the OpenTelemetry SDK for the whole process:
// one tracer provider whose span exporter comes from the telemetry
// configuration, and one meter provider backed by a Prometheus
// exporter. The engine metrics collector hangs off the meter provider
// so run, step and match measurements land on the scrape endpoint.
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/docflow/internal/config"
)

const serviceName = "docflow"

// Provider owns the process-wide tracer and meter providers.
type Provider struct {
	tp        *sdktrace.TracerProvider
	mp        *sdkmetric.MeterProvider
	collector *Collector
}

// NewProvider builds a provider from the telemetry configuration. The
// version lands on the service resource so exported spans and metrics
// identify the binary that produced them.
func NewProvider(ctx context.Context, cfg config.TelemetryConfig, version string) (*Provider, error) {
	// Empty schema URL avoids merge conflicts with the default
	// resource's own schema.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}

	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	promExporter, err := prometheus.New()
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	collector, err := NewCollector(mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics collector: %w", err)
	}

	return &Provider{tp: tp, mp: mp, collector: collector}, nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Collector returns the engine metrics collector.
func (p *Provider) Collector() *Collector {
	return p.collector
}

// MetricsHandler returns the Prometheus scrape handler. The OTel
// prometheus exporter registers with the default registry, so the
// stock promhttp handler serves everything.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ServeMetrics exposes /metrics on addr until ctx is cancelled.
func (p *Provider) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.MetricsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// ForceFlush exports pending spans and metrics synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	return p.mp.ForceFlush(ctx)
}

// Shutdown flushes and releases both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	return p.mp.Shutdown(ctx)
}
