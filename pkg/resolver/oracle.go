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

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/agent"
)

const oraclePromptTemplate = `You are a workflow matching expert. Match the requested workflow to the best available workflow.

Available workflows:
%s

Requested workflow: %q
Context: %s

Analyze the semantic meaning and intent, then provide the best match.
Return ONLY a JSON object with this structure:
{
    "matched_workflow": "exact_workflow_name_from_list",
    "confidence": 0.95,
    "reasoning": "Brief explanation of why this matches"
}

If no good match exists (confidence < 0.5), use "no_match" as the matched_workflow.`

// oracleSchema constrains the oracle response to the match shape.
func oracleSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"matched_workflow": map[string]interface{}{"type": "string"},
			"confidence":       map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"reasoning":        map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"matched_workflow", "confidence", "reasoning"},
	}
}

// matchWithOracle asks the agent provider for a semantic match. It
// returns nil when the oracle fails, answers no_match, or names a
// workflow the registry does not contain; the cascade then continues
// with its deterministic stages.
func (m *Matcher) matchWithOracle(ctx context.Context, requestedName string, matchContext map[string]interface{}) *MatchResult {
	catalog := m.catalogLines()
	if catalog == "" {
		return nil
	}

	contextDesc := "No additional context"
	if len(matchContext) > 0 {
		if data, err := json.MarshalIndent(matchContext, "", "  "); err == nil {
			contextDesc = string(data)
		}
	}

	prompt := fmt.Sprintf(oraclePromptTemplate, catalog, requestedName, contextDesc)

	response, err := m.oracle.AnalyzeText(ctx, agent.AnalyzeRequest{
		Prompt: prompt,
		Schema: oracleSchema(),
	})
	if err != nil {
		m.logger.Debug("oracle match failed", log.Error(err))
		return nil
	}

	fields, ok := response.(map[string]interface{})
	if !ok {
		m.logger.Debug("oracle returned non-object response")
		return nil
	}

	matched, _ := fields["matched_workflow"].(string)
	if matched == "" || matched == "no_match" || !m.registry.Has(matched) {
		return nil
	}

	confidence, ok := asFloat(fields["confidence"])
	if !ok {
		confidence = 0
	}
	reasoning, _ := fields["reasoning"].(string)

	return &MatchResult{
		MatchedWorkflow: matched,
		Confidence:      confidence,
		Reason:          ReasonSemanticMatch,
		Reasoning:       reasoning,
	}
}

// catalogLines renders the registry as "- name: description" lines in
// name order, one workflow per line.
func (m *Matcher) catalogLines() string {
	descriptions := m.registry.Descriptions()
	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		desc := descriptions[name]
		if desc == "" {
			desc = "No description available"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", name, desc))
	}
	return strings.Join(lines, "\n")
}

// asFloat coerces the JSON number representations a provider may hand
// back into a float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
