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

package shared

import (
	"fmt"
	"strings"
)

// ParseKeyValues parses repeated key=value flag arguments into a map.
// Values stay strings; the engine coerces typed parameters itself.
// A later duplicate key overrides an earlier one.
func ParseKeyValues(pairs []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid format %q (expected key=value)", pair)
		}
		values[parts[0]] = parts[1]
	}
	return values, nil
}
