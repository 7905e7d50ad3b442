// Package action provides the step handler registry and the built-in
// handlers for workflow execution.
//
// A handler implements one step type with the uniform contract
// (ctx, config, state) -> (result, error). The engine resolves
// templates in the step config before dispatch, so handlers see
// concrete values. Results are plain maps that conventionally carry a
// "status" field; a "failed" status or a returned error aborts the run.
//
// Built-in step types:
//   - api_call, webhook: HTTP requests with optional authentication
//     (basic, bearer, OAuth2 client credentials, AWS SigV4)
//   - mcp_task: delegate a task to the external agent, simulated when
//     no agent is available
//   - send_email: declarative notification
//   - data_transform (alias: transform): derive values from run state
//     via templates and jq queries
//   - conditional: evaluate a boolean expression and dispatch one of
//     two embedded sub-steps
//   - parallel: fan out sub-tasks concurrently, collecting results in
//     declaration order
//   - claude_analyze: ask the external agent for a structured analysis
//     of step data, simulated when no agent is available
//
// Handlers that reach external systems (HTTP, agent) honor context
// cancellation; pure handlers (transform, conditional) are synchronous.
package action
