package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/agent"
)

// analysisSchema describes the structured answer claude_analyze asks
// the agent for.
var analysisSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"summary": map[string]interface{}{"type": "string"},
		"insights": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"recommendations": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"confidence": map[string]interface{}{"type": "number"},
	},
}

// AnalyzeHandler implements the claude_analyze step type: it asks the
// external agent to analyze the step's data against a prompt. Like
// delegation, analysis degrades to a simulated result when no agent is
// available, so the run proceeds with a neutral placeholder instead of
// failing.
type AnalyzeHandler struct {
	provider agent.Provider
	logger   *slog.Logger
}

// NewAnalyzeHandler creates the claude_analyze handler. provider may be
// nil.
func NewAnalyzeHandler(provider agent.Provider, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		provider: provider,
		logger:   log.WithComponent(logger, "analyze"),
	}
}

// Handle sends config["data"] (JSON-indented when a map) plus
// config["prompt"] to the agent and wraps the structured answer.
func (h *AnalyzeHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	prompt := stringValue(config, "prompt", "")
	dataText := analysisText(config["data"])

	if h.provider != nil && h.provider.Available(ctx) {
		h.logger.Info("requesting agent analysis",
			slog.String("prompt", truncatePrompt(prompt, 100)))

		analysis, err := h.provider.AnalyzeText(ctx, agent.AnalyzeRequest{
			Text:   dataText,
			Prompt: prompt,
			Schema: analysisSchema,
		})
		if err == nil {
			return map[string]interface{}{
				"status":   "success",
				"analysis": analysis,
			}, nil
		}

		h.logger.Warn("agent analysis failed, simulating instead", log.Error(err))
	}

	return simulatedAnalysis(prompt), nil
}

// analysisText prepares the data payload for the prompt.
func analysisText(data interface{}) string {
	if m, ok := data.(map[string]interface{}); ok {
		if encoded, err := json.MarshalIndent(m, "", "  "); err == nil {
			return string(encoded)
		}
	}
	if data == nil {
		return ""
	}
	return fmt.Sprintf("%v", data)
}

func simulatedAnalysis(prompt string) map[string]interface{} {
	return map[string]interface{}{
		"status": "simulated",
		"analysis": map[string]interface{}{
			"summary":         fmt.Sprintf("Analysis simulation for: %s...", truncatePrompt(prompt, 50)),
			"insights":        []interface{}{"agent required for real analysis"},
			"recommendations": []interface{}{"install the agent CLI for full functionality"},
			"confidence":      0.0,
		},
		"warning": "agent not available - analysis was simulated",
	}
}

func truncatePrompt(prompt string, limit int) string {
	if len(prompt) <= limit {
		return prompt
	}
	return prompt[:limit]
}
