package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/agent"
)

// DelegateHandler implements the mcp_task step type: it forwards an
// agent_name/action/params bundle to the external agent. When no agent
// is configured or the call fails, the step is simulated rather than
// failed, so workflows remain runnable on machines without the agent
// CLI installed.
type DelegateHandler struct {
	provider agent.Provider
	logger   *slog.Logger
}

// NewDelegateHandler creates the mcp_task handler. provider may be nil.
func NewDelegateHandler(provider agent.Provider, logger *slog.Logger) *DelegateHandler {
	return &DelegateHandler{
		provider: provider,
		logger:   log.WithComponent(logger, "delegate"),
	}
}

// Handle forwards the task to the agent, or simulates it.
func (h *DelegateHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	agentName := stringValue(config, "agent_name", "")
	taskAction := stringValue(config, "action", "")
	params := mapValue(config, "params")

	if h.provider != nil && h.provider.Available(ctx) {
		h.logger.Info("delegating task to agent",
			slog.String("agent", agentName),
			slog.String("action", taskAction))

		result, err := h.provider.ExecuteTask(ctx, agent.TaskRequest{
			Agent:  agentName,
			Action: taskAction,
			Params: params,
		})
		if err == nil {
			h.logger.Info("delegated task completed",
				slog.String("agent", agentName),
				slog.String("action", taskAction),
				slog.Any("status", result["status"]))
			return result, nil
		}

		h.logger.Warn("agent task failed, simulating instead",
			slog.String("agent", agentName),
			slog.String("action", taskAction),
			log.Error(err))
	}

	return simulatedTask(agentName, taskAction), nil
}

func simulatedTask(agentName, taskAction string) map[string]interface{} {
	return map[string]interface{}{
		"status":  "simulated",
		"agent":   agentName,
		"action":  taskAction,
		"result":  fmt.Sprintf("Simulated execution of %s (no agent available for real execution)", taskAction),
		"warning": "agent not available - task was simulated",
	}
}
