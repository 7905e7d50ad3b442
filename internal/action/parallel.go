package action

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tombee/docflow/internal/log"
)

// ParallelHandler implements the parallel step type: it fans out the
// configured sub-tasks concurrently and collects their results in
// declaration order. A sub-task with an unknown type contributes a
// failed entry to the results without failing the step; a sub-handler
// returning an error fails the whole step and cancels the shared
// context so running siblings are told to stop.
type ParallelHandler struct {
	registry *Registry
	logger   *slog.Logger
}

// NewParallelHandler creates the parallel handler.
func NewParallelHandler(registry *Registry, logger *slog.Logger) *ParallelHandler {
	return &ParallelHandler{
		registry: registry,
		logger:   log.WithComponent(logger, "parallel"),
	}
}

// Handle dispatches config["tasks"] entries, one goroutine each, with
// no bound on fan-out width.
func (h *ParallelHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	rawTasks, _ := config["tasks"].([]interface{})
	results := make([]interface{}, len(rawTasks))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, rawTask := range rawTasks {
		g.Go(func() error {
			task, ok := rawTask.(map[string]interface{})
			if !ok {
				results[i] = failedResult(fmt.Errorf("task %d is not a map", i))
				return nil
			}

			taskType := stringValue(task, "type", "")
			handler, err := h.registry.Get(taskType)
			if err != nil {
				results[i] = failedResult(err)
				return nil
			}

			taskConfig := mapValue(task, "config")
			if taskConfig == nil {
				taskConfig = map[string]interface{}{}
			}

			result, err := handler(groupCtx, taskConfig, state)
			if err != nil {
				h.logger.Warn("parallel sub-task failed",
					slog.Int("index", i),
					slog.String("type", taskType),
					log.Error(err))
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status":  "success",
		"results": results,
	}, nil
}
