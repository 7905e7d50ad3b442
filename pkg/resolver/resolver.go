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

// Package resolver maps requested workflow names onto the names a
// catalog actually contains. Callers rarely use the exact registered
// name: they ask for "nda_signature" when the catalog has
// "document_signature", or invent variations an upstream system
// produced. The matcher resolves these through a fixed cascade of
// strategies, from exact lookup down to a generic fallback, and always
// answers; a low confidence is data for the caller's threshold policy,
// never an error.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/agent"
)

// Match reasons, from strongest to weakest.
const (
	ReasonDirectMatch     = "direct_match"
	ReasonStaticAlias     = "static_alias"
	ReasonSemanticMatch   = "semantic_match"
	ReasonFuzzyTokenMatch = "fuzzy_token_match"
	ReasonGenericFallback = "generic_fallback"
	ReasonNoMatch         = "no_match"
)

// oracleThreshold is the minimum oracle confidence the cascade accepts
// before falling through to fuzzy matching.
const oracleThreshold = 0.7

// fuzzyThreshold is the minimum Jaccard similarity for a fuzzy match.
const fuzzyThreshold = 0.5

// MatchResult is the outcome of one resolution attempt.
type MatchResult struct {
	// MatchedWorkflow is the resolved name. On a no_match it echoes
	// the requested name back.
	MatchedWorkflow string `json:"matched_workflow"`

	// Confidence is the match strength in [0, 1].
	Confidence float64 `json:"confidence"`

	// Reason identifies the cascade stage that produced the match.
	Reason string `json:"reason"`

	// Reasoning is a human-readable explanation, when available.
	Reasoning string `json:"reasoning,omitempty"`
}

// Registry is the read-only view of registered workflows the matcher
// consults. *workflow.Catalog satisfies it.
type Registry interface {
	// Has reports whether a workflow name is registered.
	Has(name string) bool

	// Names returns the registered workflow names.
	Names() []string

	// Descriptions returns a name to description map for the oracle
	// prompt.
	Descriptions() map[string]string
}

// Matcher resolves requested workflow names against a registry.
type Matcher struct {
	registry Registry
	oracle   agent.Provider
	cache    Cache
	logger   *slog.Logger
}

// NewMatcher creates a matcher over the given registry with an
// in-process cache and no oracle.
func NewMatcher(registry Registry) *Matcher {
	return &Matcher{
		registry: registry,
		cache:    NewMemoryCache(),
		logger:   log.WithComponent(slog.Default(), "resolver"),
	}
}

// WithOracle sets the agent provider consulted for semantic matching.
// A nil provider disables the oracle stage.
func (m *Matcher) WithOracle(provider agent.Provider) *Matcher {
	m.oracle = provider
	return m
}

// WithCache replaces the match cache.
func (m *Matcher) WithCache(cache Cache) *Matcher {
	m.cache = cache
	return m
}

// WithLogger sets a custom logger.
func (m *Matcher) WithLogger(logger *slog.Logger) *Matcher {
	m.logger = log.WithComponent(logger, "resolver")
	return m
}

// Match resolves a requested workflow name. Resolution always produces
// a result; the error is reserved for cache-backend failures. Repeated
// calls with the same name and context return the memoized result.
func (m *Matcher) Match(ctx context.Context, requestedName string, matchContext map[string]interface{}) (MatchResult, error) {
	key := cacheKey(requestedName, matchContext)

	if cached, ok, err := m.cache.Get(ctx, key); err != nil {
		return MatchResult{}, fmt.Errorf("match cache read: %w", err)
	} else if ok {
		m.logger.Debug("using cached match",
			slog.String("requested", requestedName),
			slog.String("matched", cached.MatchedWorkflow))
		return cached, nil
	}

	result := m.resolve(ctx, requestedName, matchContext)

	m.logger.Info("workflow resolved",
		slog.String("requested", requestedName),
		slog.String("matched", result.MatchedWorkflow),
		slog.Float64("confidence", result.Confidence),
		slog.String("reason", result.Reason))

	if err := m.cache.Set(ctx, key, result); err != nil {
		// The result is still valid; a failed write only costs a
		// recomputation next time.
		m.logger.Warn("match cache write failed", log.Error(err))
	}
	return result, nil
}

// resolve runs the cascade. Stages are ordered by confidence; the
// first stage that produces a match wins.
func (m *Matcher) resolve(ctx context.Context, requestedName string, matchContext map[string]interface{}) MatchResult {
	// 1. Exact registry key.
	if m.registry.Has(requestedName) {
		return MatchResult{
			MatchedWorkflow: requestedName,
			Confidence:      1.0,
			Reason:          ReasonDirectMatch,
			Reasoning:       "Exact workflow name exists",
		}
	}

	// 2. Static alias on the normalized name.
	normalized := normalizeName(requestedName)
	if aliased, ok := staticAliases[normalized]; ok && m.registry.Has(aliased) {
		return MatchResult{
			MatchedWorkflow: aliased,
			Confidence:      0.9,
			Reason:          ReasonStaticAlias,
			Reasoning:       fmt.Sprintf("Known alias mapping: %s -> %s", requestedName, aliased),
		}
	}

	// 3. Agent oracle.
	if m.oracle != nil && m.oracle.Available(ctx) {
		if oracle := m.matchWithOracle(ctx, requestedName, matchContext); oracle != nil && oracle.Confidence >= oracleThreshold {
			return *oracle
		}
	}

	// 4. Fuzzy token match.
	if fuzzy := m.fuzzyMatch(requestedName); fuzzy != nil {
		return *fuzzy
	}

	// 5. First registered generic fallback.
	for _, fallback := range genericFallbacks {
		if m.registry.Has(fallback) {
			return MatchResult{
				MatchedWorkflow: fallback,
				Confidence:      0.4,
				Reason:          ReasonGenericFallback,
				Reasoning:       fmt.Sprintf("No specific match found, using generic workflow: %s", fallback),
			}
		}
	}

	// 6. Echo the request back.
	return MatchResult{
		MatchedWorkflow: requestedName,
		Confidence:      0.0,
		Reason:          ReasonNoMatch,
		Reasoning:       "No suitable workflow match found",
	}
}

// fuzzyMatch scores the requested name against every registered name
// and accepts the best score above the similarity threshold.
func (m *Matcher) fuzzyMatch(requestedName string) *MatchResult {
	var bestMatch string
	bestScore := 0.0

	for _, name := range m.registry.Names() {
		if score := similarity(requestedName, name); score > bestScore {
			bestScore = score
			bestMatch = name
		}
	}

	if bestMatch == "" || bestScore < fuzzyThreshold {
		return nil
	}

	confidence := bestScore * 0.9
	if confidence > 0.7 {
		confidence = 0.7
	}
	return &MatchResult{
		MatchedWorkflow: bestMatch,
		Confidence:      confidence,
		Reason:          ReasonFuzzyTokenMatch,
		Reasoning:       fmt.Sprintf("Token similarity score: %.2f", bestScore),
	}
}

// cacheKey builds the memoization key from the requested name and a
// canonical rendering of the context. Map keys marshal in sorted
// order, so equal contexts produce equal keys.
func cacheKey(requestedName string, matchContext map[string]interface{}) string {
	if len(matchContext) == 0 {
		return requestedName + ":"
	}
	data, err := json.Marshal(matchContext)
	if err != nil {
		return requestedName + ":" + fmt.Sprintf("%v", matchContext)
	}
	return requestedName + ":" + string(data)
}
