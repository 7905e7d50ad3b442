package workflow

import (
	"bytes"
	"log/slog"
	"strings"
	"text/template"
)

// TemplateResolver renders template markers inside step configs. It walks
// nested maps and slices, rendering only string leaves that contain "{{";
// everything else passes through unchanged. A rendered template always
// yields a string. Resolution is pure: no I/O, no mutation of the input.
//
// Failure policy follows the source system: undefined variables and syntax
// errors render as the empty string with a warning log; any other render
// error leaves the original string in place.
type TemplateResolver struct {
	logger *slog.Logger
	funcs  template.FuncMap
}

// NewTemplateResolver creates a resolver logging through the given logger.
func NewTemplateResolver(logger *slog.Logger) *TemplateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateResolver{
		logger: logger,
		funcs:  TemplateFuncMap(),
	}
}

// ResolveConfig returns a copy of config with all template markers rendered
// against the given context.
func (tr *TemplateResolver) ResolveConfig(config, context map[string]interface{}) map[string]interface{} {
	if config == nil {
		return nil
	}
	resolved := make(map[string]interface{}, len(config))
	for key, value := range config {
		resolved[key] = tr.ResolveValue(value, context)
	}
	return resolved
}

// ResolveValue recursively resolves template markers in a value.
func (tr *TemplateResolver) ResolveValue(value interface{}, context map[string]interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v
		}
		return tr.Render(v, context)
	case map[string]interface{}:
		resolved := make(map[string]interface{}, len(v))
		for k, val := range v {
			resolved[k] = tr.ResolveValue(val, context)
		}
		return resolved
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, val := range v {
			resolved[i] = tr.ResolveValue(val, context)
		}
		return resolved
	default:
		return value
	}
}

// Render executes a template string against the context and returns the
// rendered text.
func (tr *TemplateResolver) Render(text string, context map[string]interface{}) string {
	tmpl, err := template.New("config").
		Funcs(tr.funcs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		tr.logger.Warn("template syntax error",
			slog.String("template", truncateForLog(text)),
			slog.String("error", err.Error()))
		return ""
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		if isUndefinedError(err) {
			tr.logger.Warn("undefined template variable",
				slog.String("template", truncateForLog(text)),
				slog.String("error", err.Error()))
			return ""
		}
		tr.logger.Warn("template render error, keeping original",
			slog.String("template", truncateForLog(text)),
			slog.String("error", err.Error()))
		return text
	}

	result := buf.String()
	// A nil context value renders as "<no value>"; treat it as undefined.
	if strings.Contains(result, "<no value>") {
		tr.logger.Warn("undefined template variable",
			slog.String("template", truncateForLog(text)))
		return ""
	}

	return result
}

// isUndefinedError reports whether a template execution error was caused
// by a missing map key or field access on the wrong type, the Go analogs
// of an undefined variable.
func isUndefinedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "map has no entry for key") ||
		strings.Contains(msg, "can't evaluate field") ||
		strings.Contains(msg, "nil data; no entry for key")
}

// truncateForLog truncates a template string for inclusion in log records.
func truncateForLog(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
