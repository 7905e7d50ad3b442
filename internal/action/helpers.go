package action

import "fmt"

// stringValue returns config[key] as a string, or fallback when the key
// is absent or holds a non-string.
func stringValue(config map[string]interface{}, key, fallback string) string {
	if config == nil {
		return fallback
	}
	if s, ok := config[key].(string); ok {
		return s
	}
	return fallback
}

// mapValue returns config[key] as a map, or nil.
func mapValue(config map[string]interface{}, key string) map[string]interface{} {
	if config == nil {
		return nil
	}
	m, _ := config[key].(map[string]interface{})
	return m
}

// stringify renders a config value for use in headers and query
// parameters, avoiding the %v float artifacts for whole numbers that
// came through a JSON decode.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// failedResult builds the conventional failure shape handlers return
// when an external call could not complete.
func failedResult(err error) map[string]interface{} {
	return map[string]interface{}{
		"status": "failed",
		"error":  err.Error(),
	}
}
