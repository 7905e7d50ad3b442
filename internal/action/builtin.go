package action

import (
	"log/slog"

	"github.com/tombee/docflow/internal/jq"
	"github.com/tombee/docflow/pkg/agent"
)

// BuiltinConfig carries the dependencies of the built-in handlers.
type BuiltinConfig struct {
	// Agent is the external agent provider for mcp_task and
	// claude_analyze. Nil means those steps run simulated.
	Agent agent.Provider

	// JQ executes data_transform queries. Nil gets a default executor.
	JQ *jq.Executor

	// Logger is the base logger handlers derive from. Nil uses the
	// process default.
	Logger *slog.Logger

	// HTTPOptions tune the api_call and webhook handler.
	HTTPOptions []HTTPOption
}

// RegisterBuiltins wires the standard handler set into the registry.
// The transform handler answers to both its canonical key and the
// short "transform" alias, mirroring webhook's aliasing of api_call.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpHandler := NewHTTPHandler(logger, cfg.HTTPOptions...)
	r.Register("api_call", httpHandler.Handle)
	r.Register("webhook", httpHandler.Handle)

	r.Register("mcp_task", NewDelegateHandler(cfg.Agent, logger).Handle)
	r.Register("send_email", NewNotifyHandler(logger))

	transform := NewTransformHandler(cfg.JQ, logger)
	r.Register("data_transform", transform.Handle)
	r.Register("transform", transform.Handle)

	r.Register("conditional", NewConditionalHandler(r, logger).Handle)
	r.Register("parallel", NewParallelHandler(r, logger).Handle)
	r.Register("claude_analyze", NewAnalyzeHandler(cfg.Agent, logger).Handle)
}
