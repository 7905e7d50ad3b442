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
	"regexp"
	"strings"
)

// staticAliases maps known workflow name variations to their canonical
// names. Lookup happens on the normalized request; the target must
// still be registered for the alias to apply.
var staticAliases = map[string]string{
	// Complete variations
	"complete_recipient_info":      "complete_missing_info",
	"complete_agreement_date":      "complete_missing_info",
	"complete_sender_info":         "complete_missing_info",
	"complete_party_info":          "complete_missing_info",
	"complete_missing_information": "complete_missing_info",
	"complete_info":                "complete_missing_info",

	// Signature variations
	"nda_signature":       "document_signature",
	"contract_signature":  "document_signature",
	"agreement_signature": "document_signature",
	"sign_document":       "document_signature",
	"signature_required":  "document_signature",
	"signature_request":   "document_signature",

	// Document management variations
	"confidential_info_return": "document_management",
	"return_confidential_info": "document_management",
	"manage_document":          "document_management",
	"document_lifecycle":       "document_management",

	// Legal/compliance variations
	"nda_review":       "document_review",
	"contract_review":  "document_review",
	"legal_review":     "legal_compliance",
	"compliance_check": "legal_compliance",

	// Invoice variations
	"invoice_processing": "process_invoice",
	"process_invoice":    "invoice",
	"invoice_workflow":   "invoice",
}

// synonyms maps tokens to the image added alongside them during
// tokenization. The mapping is applied one hop, never transitively.
var synonyms = map[string]string{
	"information":     "info",
	"recipient":       "party",
	"sender":          "party",
	"nda":             "document",
	"confidentiality": "confidential",
	"confidential":    "document",
	"sign":            "signature",
	"signing":         "signature",
	"agreement":       "document",
	"contract":        "document",
	"return":          "management",
	"manage":          "management",
	"process":         "processing",
	"complete":        "missing",
	"fill":            "missing",
}

// genericFallbacks lists fallback workflows in order of preference.
var genericFallbacks = []string{
	"document_review",
	"complete_missing_info",
	"document_management",
	"document_signature",
	"legal_compliance",
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeName lowercases a workflow name and reduces every run of
// non-alphanumeric characters to a single underscore.
func normalizeName(name string) string {
	normalized := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(normalized, "_")
}

// tokenize splits a normalized name into its token set, adding each
// token's synonym image.
func tokenize(name string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.Split(normalizeName(name), "_") {
		if token == "" {
			continue
		}
		tokens[token] = struct{}{}
		if image, ok := synonyms[token]; ok {
			tokens[image] = struct{}{}
		}
	}
	return tokens
}

// similarity computes the Jaccard similarity of two names' token sets.
func similarity(name1, name2 string) float64 {
	tokens1 := tokenize(name1)
	tokens2 := tokenize(name2)
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokens1 {
		if _, ok := tokens2[token]; ok {
			intersection++
		}
	}
	union := len(tokens1) + len(tokens2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
