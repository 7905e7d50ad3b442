package workflow

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"
)

// Input size limits for template function output
const (
	MaxJSONSize = 1 * 1024 * 1024 // 1MB
	MaxArrayLen = 10000           // 10,000 elements
)

// TemplateFuncMap returns the custom functions available in step config
// templates.
func TemplateFuncMap() template.FuncMap {
	return template.FuncMap{
		// JSON
		"toJson":       toJson,
		"toJsonPretty": toJsonPretty,
		"fromJson":     fromJson,

		// Strings (mostly direct stdlib mappings)
		"join":       joinFunc,
		"split":      strings.Split,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"trim":       strings.TrimSpace,
		"trimPrefix": strings.TrimPrefix,
		"trimSuffix": strings.TrimSuffix,
		"contains":   strings.Contains,
		"hasPrefix":  strings.HasPrefix,
		"hasSuffix":  strings.HasSuffix,
		"replace":    strings.Replace,

		// Collections
		"first":  first,
		"last":   last,
		"keys":   keys,
		"hasKey": hasKey,

		// Default
		"default":  defaultFunc,
		"coalesce": coalesce,

		// Type conversion
		"toInt":    toInt,
		"toFloat":  toFloat,
		"toString": toString,
	}
}

// toJson serializes a value to compact JSON
func toJson(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toJson: %w", err)
	}

	if len(data) > MaxJSONSize {
		return "", fmt.Errorf("toJson: output exceeds maximum size of %d bytes", MaxJSONSize)
	}

	return string(data), nil
}

// toJsonPretty serializes a value to indented JSON
func toJsonPretty(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("toJsonPretty: %w", err)
	}

	if len(data) > MaxJSONSize {
		return "", fmt.Errorf("toJsonPretty: output exceeds maximum size of %d bytes", MaxJSONSize)
	}

	return string(data), nil
}

// fromJson parses a JSON string to interface{}
func fromJson(s string) (interface{}, error) {
	if len(s) > MaxJSONSize {
		return nil, fmt.Errorf("fromJson: input exceeds maximum size of %d bytes", MaxJSONSize)
	}

	var result interface{}
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil, fmt.Errorf("fromJson: %w", err)
	}

	return result, nil
}

// joinFunc wraps strings.Join to accept []interface{} from templates
func joinFunc(arr interface{}, sep string) (string, error) {
	slice := reflect.ValueOf(arr)
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return "", fmt.Errorf("join: first argument must be array or slice, got %T", arr)
	}

	if slice.Len() > MaxArrayLen {
		return "", fmt.Errorf("join: array exceeds maximum length of %d elements", MaxArrayLen)
	}

	parts := make([]string, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		parts[i] = fmt.Sprint(slice.Index(i).Interface())
	}

	return strings.Join(parts, sep), nil
}

// first returns the first element of a slice
func first(arr interface{}) (interface{}, error) {
	slice := reflect.ValueOf(arr)
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return nil, fmt.Errorf("first: argument must be array or slice, got %T", arr)
	}

	if slice.Len() == 0 {
		return nil, fmt.Errorf("first: array is empty")
	}

	return slice.Index(0).Interface(), nil
}

// last returns the last element of a slice
func last(arr interface{}) (interface{}, error) {
	slice := reflect.ValueOf(arr)
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return nil, fmt.Errorf("last: argument must be array or slice, got %T", arr)
	}

	if slice.Len() == 0 {
		return nil, fmt.Errorf("last: array is empty")
	}

	return slice.Index(slice.Len() - 1).Interface(), nil
}

// keys returns the keys of a map as a slice
func keys(m interface{}) ([]string, error) {
	mapVal := reflect.ValueOf(m)
	if mapVal.Kind() != reflect.Map {
		return nil, fmt.Errorf("keys: argument must be map, got %T", m)
	}

	if mapVal.Len() > MaxArrayLen {
		return nil, fmt.Errorf("keys: map exceeds maximum size of %d elements", MaxArrayLen)
	}

	result := make([]string, 0, mapVal.Len())
	for _, key := range mapVal.MapKeys() {
		result = append(result, fmt.Sprint(key.Interface()))
	}

	return result, nil
}

// hasKey checks if a map has a specific key
func hasKey(m interface{}, key string) (bool, error) {
	mapVal := reflect.ValueOf(m)
	if mapVal.Kind() != reflect.Map {
		return false, fmt.Errorf("hasKey: first argument must be map, got %T", m)
	}

	keyVal := reflect.ValueOf(key)
	return mapVal.MapIndex(keyVal).IsValid(), nil
}

// defaultFunc returns the default value if the value is nil or empty
func defaultFunc(value, defaultVal interface{}) interface{} {
	if value == nil {
		return defaultVal
	}

	// Check for empty string
	if s, ok := value.(string); ok && s == "" {
		return defaultVal
	}

	// Check for zero-length slice/map
	v := reflect.ValueOf(value)
	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0 {
		return defaultVal
	}

	return value
}

// coalesce returns the first non-empty value from variadic arguments
func coalesce(values ...interface{}) interface{} {
	for _, v := range values {
		if v == nil {
			continue
		}

		if s, ok := v.(string); ok && s == "" {
			continue
		}

		return v
	}
	return nil
}

// toInt converts a value to integer
func toInt(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case float32:
		return int64(val), nil
	case string:
		var n int64
		if _, err := fmt.Sscanf(val, "%d", &n); err != nil {
			return 0, fmt.Errorf("toInt: cannot convert %q to int", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("toInt: cannot convert %T to int", v)
	}
}

// toFloat converts a value to float
func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(val, "%g", &f); err != nil {
			return 0, fmt.Errorf("toFloat: cannot convert %q to float", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("toFloat: cannot convert %T to float", v)
	}
}

// toString converts a value to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
