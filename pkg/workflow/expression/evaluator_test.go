package expression

import (
	"testing"
)

func TestEvaluateComparisons(t *testing.T) {
	eval := New()
	ctx := map[string]interface{}{
		"document_type": "nda",
		"amount":        1500.0,
		"currency":      "USD",
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"string equality", `document_type == "nda"`, true},
		{"string inequality", `document_type != "invoice"`, true},
		{"numeric comparison", `amount > 1000`, true},
		{"numeric comparison false", `amount < 1000`, false},
		{"boolean and", `amount > 1000 && currency == "USD"`, true},
		{"boolean or", `amount < 10 || currency == "USD"`, true},
		{"negation", `!(document_type == "invoice")`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expr, ctx)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateStateAccess(t *testing.T) {
	eval := New()
	state := map[string]interface{}{
		"steps.check": map[string]interface{}{
			"status": "success",
		},
	}
	ctx := map[string]interface{}{
		"state": state,
	}
	for k, v := range state {
		ctx[k] = v
	}

	got, err := eval.Evaluate(`state["steps.check"].status == "success"`, ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got {
		t.Error("expected flat state key to be reachable via index expression")
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	eval := New()
	got, err := eval.Evaluate("", nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got {
		t.Error("empty expression should evaluate to true")
	}
}

func TestEvaluateUndefinedVariable(t *testing.T) {
	eval := New()
	// Undefined variables are allowed at compile time; comparing a nil
	// against a string yields false rather than an error.
	got, err := eval.Evaluate(`missing_field == "x"`, map[string]interface{}{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got {
		t.Error("undefined variable comparison should be false")
	}
}

func TestEvaluateNonBoolean(t *testing.T) {
	eval := New()
	if _, err := eval.Evaluate(`1 + 1`, nil); err == nil {
		t.Fatal("expected error for non-boolean expression")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eval := New()
	if _, err := eval.Evaluate(`&&& bogus`, nil); err == nil {
		t.Fatal("expected error for invalid syntax")
	}
}

func TestEvaluateMembership(t *testing.T) {
	eval := New()
	ctx := map[string]interface{}{
		"parties": []interface{}{"Acme Corp", "Globex"},
	}

	got, err := eval.Evaluate(`"Acme Corp" in parties`, ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got {
		t.Error(`expected "Acme Corp" in parties to be true`)
	}

	got, err = eval.Evaluate(`has(parties, "Globex")`, ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got {
		t.Error(`expected has(parties, "Globex") to be true`)
	}

	got, err = eval.Evaluate(`length(parties) == 2`, ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !got {
		t.Error("expected length(parties) == 2 to be true")
	}
}

func TestCompileCache(t *testing.T) {
	eval := New()
	ctx := map[string]interface{}{"x": 1}

	if _, err := eval.Evaluate(`x == 1`, ctx); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.CacheSize() != 1 {
		t.Errorf("expected cache size 1, got %d", eval.CacheSize())
	}

	// Same expression should not grow the cache
	if _, err := eval.Evaluate(`x == 1`, ctx); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.CacheSize() != 1 {
		t.Errorf("expected cache size 1 after repeat, got %d", eval.CacheSize())
	}

	eval.ClearCache()
	if eval.CacheSize() != 0 {
		t.Errorf("expected empty cache after clear, got %d", eval.CacheSize())
	}
}
