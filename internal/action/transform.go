package action

import (
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/tombee/docflow/internal/jq"
	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/workflow"
)

// TransformHandler implements the data_transform step type. Each entry
// under transformations renders a template against the run state; each
// entry under queries runs a jq expression against it. A failing key
// yields nil for that key only, never aborting the step, so a partial
// transform is always observable in the result.
type TransformHandler struct {
	jq     *jq.Executor
	logger *slog.Logger
}

// NewTransformHandler creates the data_transform handler.
func NewTransformHandler(executor *jq.Executor, logger *slog.Logger) *TransformHandler {
	if executor == nil {
		executor = jq.NewExecutor(0, 0)
	}
	return &TransformHandler{
		jq:     executor,
		logger: log.WithComponent(logger, "transform"),
	}
}

// Handle derives new values from state and returns them under
// "transformed". The template context exposes state both spread at the
// top level and under the "state" key, so {{.foo}} and {{.state.foo}}
// address the same value.
func (h *TransformHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	templateCtx := make(map[string]interface{}, len(state)+1)
	for k, v := range state {
		templateCtx[k] = v
	}
	templateCtx["state"] = state

	transformed := make(map[string]interface{})

	for key, raw := range mapValue(config, "transformations") {
		transformed[key] = h.renderTransform(key, raw, templateCtx)
	}

	for key, raw := range mapValue(config, "queries") {
		expr, ok := raw.(string)
		if !ok {
			h.logger.Warn("query is not a string", slog.String("key", key))
			transformed[key] = nil
			continue
		}
		result, err := h.jq.Execute(ctx, expr, state)
		if err != nil {
			h.logger.Warn("query failed",
				slog.String("key", key),
				log.Error(err))
			transformed[key] = nil
			continue
		}
		transformed[key] = result
	}

	return map[string]interface{}{
		"status":      "success",
		"transformed": transformed,
	}, nil
}

// renderTransform evaluates a single transformation entry. Strings
// without template markers pass through unchanged; template failures
// of any kind yield nil.
func (h *TransformHandler) renderTransform(key string, raw interface{}, templateCtx map[string]interface{}) interface{} {
	expr, ok := raw.(string)
	if !ok {
		h.logger.Warn("transformation is not a string", slog.String("key", key))
		return nil
	}
	if !strings.Contains(expr, "{{") {
		return expr
	}

	tmpl, err := template.New(key).
		Funcs(workflow.TemplateFuncMap()).
		Option("missingkey=error").
		Parse(expr)
	if err != nil {
		h.logger.Warn("transformation failed",
			slog.String("key", key),
			log.Error(err))
		return nil
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, templateCtx); err != nil {
		h.logger.Warn("transformation failed",
			slog.String("key", key),
			log.Error(err))
		return nil
	}

	result := sb.String()
	if strings.Contains(result, "<no value>") {
		h.logger.Warn("transformation rendered a missing value", slog.String("key", key))
		return nil
	}
	return result
}
