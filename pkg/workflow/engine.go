package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/docflow/pkg/errors"
)

// ActionRegistry defines the interface for step handler lookup and
// execution. It decouples the engine from the handler implementations.
type ActionRegistry interface {
	// Execute runs the handler registered for stepType. An unregistered
	// type returns *errors.NotFoundError{Resource: "action"}.
	Execute(ctx context.Context, stepType string, config, state map[string]interface{}) (map[string]interface{}, error)
}

// EngineMetrics receives run and step measurements. Implementations
// must be safe for concurrent use.
type EngineMetrics interface {
	RecordRun(ctx context.Context, workflow string, status Status, duration time.Duration)
	RecordStep(ctx context.Context, stepType, status string, duration time.Duration)
}

// parameterAliases maps canonical parameter names to the alternative
// names callers commonly send. Used to fill missing required parameters
// before validation; consumed alternates are removed.
var parameterAliases = map[string][]string{
	"parties":        {"party1", "party2", "party"},
	"effective_date": {"date", "start_date", "effective"},
	"document_type":  {"type", "doc_type", "documentType"},
	"document_id":    {"doc_id", "id", "documentId"},
}

// Engine executes workflow definitions against documents. It advances
// one run's steps sequentially; distinct runs may execute concurrently
// against the same store.
type Engine struct {
	catalog   *Catalog
	actions   ActionRegistry
	store     RunStore
	templates *TemplateResolver
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   EngineMetrics
}

// NewEngine creates an engine over the given catalog, action registry
// and run store. A nil store falls back to an in-memory store.
func NewEngine(catalog *Catalog, actions ActionRegistry, store RunStore) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	logger := slog.Default()
	return &Engine{
		catalog:   catalog,
		actions:   actions,
		store:     store,
		templates: NewTemplateResolver(logger),
		logger:    logger,
	}
}

// WithLogger sets a custom logger for the engine.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	e.templates = NewTemplateResolver(logger)
	return e
}

// WithTracer sets the tracer used for run and step spans. A nil tracer
// disables span creation.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer
	return e
}

// WithMetrics sets the metrics sink for run and step measurements.
func (e *Engine) WithMetrics(metrics EngineMetrics) *Engine {
	e.metrics = metrics
	return e
}

// Store returns the engine's run store.
func (e *Engine) Store() RunStore {
	return e.store
}

// Catalog returns the engine's definition catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Execute runs the named workflow against a document.
//
// Only pre-execution failures surface as Go errors: an unknown workflow
// name returns *errors.NotFoundError, a parameter violation returns
// *errors.ValidationError, both before a run record exists. Once the
// first step starts, every failure lands in the returned run as a
// terminal failed status with a nil error, partial outputs included.
func (e *Engine) Execute(ctx context.Context, definitionName, documentID string, parameters map[string]interface{}) (*Run, error) {
	def, ok := e.catalog.Get(definitionName)
	if !ok {
		return nil, &errors.NotFoundError{Resource: "workflow", ID: definitionName}
	}

	params := fillParameterAliases(def, parameters)
	if err := e.validateParameters(def, params); err != nil {
		return nil, err
	}

	run := NewRun(def.Name, documentID, params)
	run.Start()

	logger := e.logger.With(
		slog.String("run_id", run.RunID),
		slog.String("workflow", run.WorkflowName),
		slog.String("document_id", run.DocumentID))

	ctx, span := e.startRunSpan(ctx, run)
	logger.Info("run started", slog.Int("steps", len(def.Steps)))

	e.persist(ctx, run, logger)
	e.runSteps(ctx, def, run, logger)

	if span != nil {
		if run.Status == StatusFailed {
			span.SetStatus(codes.Error, run.Error)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
	if e.metrics != nil {
		e.metrics.RecordRun(ctx, run.WorkflowName, run.Status, run.Duration())
	}

	e.persist(ctx, run, logger)

	logger.Info("run finished",
		slog.String("status", string(run.Status)),
		slog.Duration("duration", run.Duration()))

	return run, nil
}

// runSteps advances the run through the definition's steps in order,
// leaving the run in a terminal status.
func (e *Engine) runSteps(ctx context.Context, def *Definition, run *Run, logger *slog.Logger) {
	for _, step := range def.Steps {
		run.CurrentStep = step.ID
		e.persist(ctx, run, logger)

		stepLogger := logger.With(
			slog.String("step_id", step.ID),
			slog.String("step_type", step.Type))
		stepLogger.Info("step started", slog.String("description", step.Description))

		templateCtx := make(map[string]interface{}, len(run.Parameters)+1)
		for k, v := range run.Parameters {
			templateCtx[k] = v
		}
		templateCtx["steps"] = run.State

		resolved := e.templates.ResolveConfig(step.Config, templateCtx)
		if resolved == nil {
			resolved = map[string]interface{}{}
		}

		stepCtx, stepSpan := e.startStepSpan(ctx, step)
		started := time.Now()
		result, err := e.actions.Execute(stepCtx, step.Type, resolved, run.State)
		elapsed := time.Since(started)

		if err != nil {
			message := fmt.Sprintf("Step %s failed: %v", step.ID, err)
			e.endStepSpan(stepSpan, err.Error())
			e.recordStepMetric(ctx, step.Type, "failed", elapsed)
			stepLogger.Error("step failed", slog.String("error", err.Error()))
			run.Fail(message)
			return
		}

		run.RecordStep(step.ID, result)
		e.persist(ctx, run, logger)

		if status, _ := result["status"].(string); status == "failed" {
			detail := "Unknown error"
			if errText, ok := result["error"]; ok {
				detail = fmt.Sprintf("%v", errText)
			}
			message := fmt.Sprintf("Step %s failed: %s", step.ID, detail)
			e.endStepSpan(stepSpan, detail)
			e.recordStepMetric(ctx, step.Type, "failed", elapsed)
			stepLogger.Error("step failed", slog.String("error", detail))
			run.Fail(message)
			return
		}

		e.endStepSpan(stepSpan, "")
		e.recordStepMetric(ctx, step.Type, "success", elapsed)
		stepLogger.Info("step completed", slog.Duration("duration", elapsed))
	}

	run.Complete()
}

// persist saves the run, retrying once on failure. Persistence never
// aborts a run; the in-memory record stays authoritative.
func (e *Engine) persist(ctx context.Context, run *Run, logger *slog.Logger) {
	err := e.store.Save(ctx, run)
	if err == nil {
		return
	}
	logger.Warn("run persistence failed, retrying", slog.String("error", err.Error()))
	if err := e.store.Save(ctx, run); err != nil {
		logger.Error("run persistence failed after retry", slog.String("error", err.Error()))
	}
}

func (e *Engine) startRunSpan(ctx context.Context, run *Run) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	return e.tracer.Start(ctx, fmt.Sprintf("workflow.run: %s", run.WorkflowName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workflow.name", run.WorkflowName),
			attribute.String("workflow.run_id", run.RunID),
			attribute.String("document.id", run.DocumentID),
		))
}

func (e *Engine) startStepSpan(ctx context.Context, step StepDefinition) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}
	return e.tracer.Start(ctx, fmt.Sprintf("step: %s", step.ID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", step.ID),
			attribute.String("step.type", step.Type),
		))
}

func (e *Engine) endStepSpan(span trace.Span, errMessage string) {
	if span == nil {
		return
	}
	if errMessage != "" {
		span.SetStatus(codes.Error, errMessage)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (e *Engine) recordStepMetric(ctx context.Context, stepType, status string, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordStep(ctx, stepType, status, duration)
}

// fillParameterAliases returns a copy of parameters with missing
// required parameters filled from their known alternative names.
func fillParameterAliases(def *Definition, parameters map[string]interface{}) map[string]interface{} {
	params := make(map[string]interface{}, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}

	for _, spec := range def.Parameters {
		if !spec.Required {
			continue
		}
		if _, present := params[spec.Name]; present {
			continue
		}
		alternates, known := parameterAliases[spec.Name]
		if !known {
			continue
		}

		if spec.Name == "parties" {
			p1, ok1 := params["party1"]
			p2, ok2 := params["party2"]
			if ok1 && ok2 {
				params["parties"] = []interface{}{p1, p2}
				delete(params, "party1")
				delete(params, "party2")
				continue
			}
		}

		for _, alt := range alternates {
			value, present := params[alt]
			if !present {
				continue
			}
			if spec.Name == "parties" {
				if _, isList := value.([]interface{}); !isList {
					value = []interface{}{value}
				}
			}
			params[spec.Name] = value
			delete(params, alt)
			break
		}
	}

	return params
}

// validateParameters checks params against the definition's parameter
// specs. Scalars declared as arrays are coerced in place.
func (e *Engine) validateParameters(def *Definition, params map[string]interface{}) error {
	for _, spec := range def.Parameters {
		value, present := params[spec.Name]
		if spec.Required && !present {
			return &errors.ValidationError{
				Field:      spec.Name,
				Message:    fmt.Sprintf("required parameter %q not provided", spec.Name),
				Suggestion: fmt.Sprintf("pass %q when starting the workflow", spec.Name),
			}
		}
		if !present {
			continue
		}

		switch spec.Type {
		case "string":
			if _, ok := value.(string); !ok {
				return &errors.ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("parameter %q must be a string", spec.Name),
				}
			}
		case "float":
			if !isNumeric(value) {
				return &errors.ValidationError{
					Field:   spec.Name,
					Message: fmt.Sprintf("parameter %q must be a number", spec.Name),
				}
			}
		case "array":
			if _, ok := value.([]interface{}); !ok {
				params[spec.Name] = []interface{}{value}
				e.logger.Info("coerced scalar parameter to array",
					slog.String("parameter", spec.Name))
			}
		}
	}
	return nil
}

// isNumeric reports whether a value is one of the numeric types YAML
// and JSON decoding produce.
func isNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
