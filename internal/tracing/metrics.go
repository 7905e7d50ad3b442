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

package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tombee/docflow/pkg/workflow"
)

// Collector records engine and resolver measurements through OTel
// instruments. It satisfies workflow.EngineMetrics.
type Collector struct {
	runsTotal    metric.Int64Counter
	stepsTotal   metric.Int64Counter
	matchesTotal metric.Int64Counter
	runDuration  metric.Float64Histogram
	stepDuration metric.Float64Histogram
}

var _ workflow.EngineMetrics = (*Collector)(nil)

// NewCollector creates a collector registered on the given meter
// provider.
func NewCollector(meterProvider metric.MeterProvider) (*Collector, error) {
	meter := meterProvider.Meter(serviceName)

	c := &Collector{}
	var err error

	c.runsTotal, err = meter.Int64Counter(
		"docflow_runs_total",
		metric.WithDescription("Total number of workflow runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	c.stepsTotal, err = meter.Int64Counter(
		"docflow_steps_total",
		metric.WithDescription("Total number of workflow steps executed"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	c.matchesTotal, err = meter.Int64Counter(
		"docflow_matches_total",
		metric.WithDescription("Total number of workflow name resolutions"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		return nil, err
	}

	c.runDuration, err = meter.Float64Histogram(
		"docflow_run_duration_seconds",
		metric.WithDescription("Workflow run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	c.stepDuration, err = meter.Float64Histogram(
		"docflow_step_duration_seconds",
		metric.WithDescription("Step execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// RecordRun records a completed workflow run.
func (c *Collector) RecordRun(ctx context.Context, workflowName string, status workflow.Status, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflowName),
		attribute.String("status", string(status)),
	)
	c.runsTotal.Add(ctx, 1, attrs)
	c.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records a completed workflow step.
func (c *Collector) RecordStep(ctx context.Context, stepType, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("type", stepType),
		attribute.String("status", status),
	)
	c.stepsTotal.Add(ctx, 1, attrs)
	c.stepDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMatch records one workflow name resolution by cascade stage.
func (c *Collector) RecordMatch(ctx context.Context, reason string) {
	c.matchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
