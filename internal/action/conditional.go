package action

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow/expression"
)

// ConditionalHandler implements the conditional step type: it evaluates
// a boolean condition and dispatches exactly one of the if_true or
// if_false sub-steps through the registry, never both.
type ConditionalHandler struct {
	registry *Registry
	eval     *expression.Evaluator
	logger   *slog.Logger
}

// NewConditionalHandler creates the conditional handler.
func NewConditionalHandler(registry *Registry, logger *slog.Logger) *ConditionalHandler {
	return &ConditionalHandler{
		registry: registry,
		eval:     expression.New(),
		logger:   log.WithComponent(logger, "conditional"),
	}
}

// Handle evaluates the condition and runs the selected branch. Upstream
// template resolution usually leaves a literal "true"/"false" in the
// condition; anything else is compiled as a boolean expression against
// the run state. A branch without a registered type produces the
// branch_taken result instead of dispatching.
func (h *ConditionalHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	condition, ok := config["condition"].(string)
	if !ok || condition == "" {
		return nil, &errors.ValidationError{
			Field:      "condition",
			Message:    "conditional requires a condition",
			Suggestion: "Add a condition expression to the step config",
		}
	}

	result, err := h.evaluate(condition, state)
	if err != nil {
		return nil, err
	}

	branchName := "false"
	branch := mapValue(config, "if_false")
	if result {
		branchName = "true"
		branch = mapValue(config, "if_true")
	}

	h.logger.Debug("condition evaluated",
		slog.String("condition", condition),
		slog.Bool("result", result))

	if branchType := stringValue(branch, "type", ""); branchType != "" {
		handler, err := h.registry.Get(branchType)
		if err != nil {
			h.logger.Warn("branch type not registered, skipping dispatch",
				slog.String("type", branchType))
		} else {
			branchConfig := mapValue(branch, "config")
			if branchConfig == nil {
				branchConfig = map[string]interface{}{}
			}
			return handler(ctx, branchConfig, state)
		}
	}

	return map[string]interface{}{
		"status":       "success",
		"branch_taken": branchName,
	}, nil
}

// evaluate short-circuits on the boolean literals left behind by
// template resolution, then falls back to compiling the expression.
func (h *ConditionalHandler) evaluate(condition string, state map[string]interface{}) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}

	evalCtx := make(map[string]interface{}, len(state)+1)
	for k, v := range state {
		evalCtx[k] = v
	}
	evalCtx["state"] = state

	return h.eval.Evaluate(condition, evalCtx)
}
