// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package claudecli

import (
	"encoding/json"
	"strings"
)

// parseAgentJSON parses CLI output that should contain a JSON object.
// Agents often wrap the object in prose or markdown fences, so after a
// direct unmarshal fails the parser retries on the outermost {...}
// span. When no parseable object is present the raw text is preserved
// under "result" so the response is never lost.
func parseAgentJSON(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed
	}

	if span, ok := extractJSONObject(trimmed); ok {
		if err := json.Unmarshal([]byte(span), &parsed); err == nil {
			return parsed
		}
	}

	return map[string]interface{}{
		"result": trimmed,
		"error":  "JSON parsing failed",
	}
}

// extractJSONObject returns the substring from the first '{' to the
// last '}' in s. This deliberately ignores nesting: the outermost span
// is what a fenced or prose-wrapped JSON object occupies.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
