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
	"math"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"document_review", "document_review"},
		{"NDA Review", "nda_review"},
		{"Sign.Document!", "sign_document"},
		{"complete--missing__info", "complete_missing_info"},
		{"  padded  ", "padded"},
		{"___", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("nda_signature")

	// nda expands to document; the original token stays in the set.
	for _, want := range []string{"nda", "document", "signature"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("tokenize(nda_signature) missing %q", want)
		}
	}
	if len(tokens) != 3 {
		t.Errorf("tokenize(nda_signature) = %v, want 3 tokens", tokens)
	}

	if got := tokenize(""); len(got) != 0 {
		t.Errorf("tokenize(\"\") = %v, want empty set", got)
	}
}

func TestTokenizeSynonymsAreOneHop(t *testing.T) {
	// confidentiality maps to confidential, and confidential maps to
	// document, but the chain must not be followed transitively.
	tokens := tokenize("confidentiality")
	if _, ok := tokens["confidential"]; !ok {
		t.Error("expected the direct synonym confidential")
	}
	if _, ok := tokens["document"]; ok {
		t.Error("synonym expansion must not chain through confidential to document")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name1 string
		name2 string
		want  float64
	}{
		{"document_review", "document_review", 1.0},
		{"review_document", "document_review", 1.0},
		{"nda_signature", "document_signature", 2.0 / 3.0},
		{"sign_contract", "document_signature", 0.5},
		{"payment_batch", "document_review", 0.0},
		{"", "document_review", 0.0},
		{"", "", 0.0},
	}

	for _, tt := range tests {
		got := similarity(tt.name1, tt.name2)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.name1, tt.name2, got, tt.want)
		}
	}
}

func TestStaticAliasKeysAreNormalized(t *testing.T) {
	// Lookup happens after normalization, so a key that normalization
	// can never produce is dead weight.
	for key := range staticAliases {
		if normalizeName(key) != key {
			t.Errorf("alias key %q is not in normalized form", key)
		}
	}
}

func TestGenericFallbacksAreCanonicalNames(t *testing.T) {
	for _, name := range genericFallbacks {
		if normalizeName(name) != name {
			t.Errorf("fallback %q is not in normalized form", name)
		}
	}
}
