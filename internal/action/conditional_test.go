package action

import (
	"context"
	"testing"

	"github.com/tombee/docflow/pkg/errors"
)

func TestConditional_Literals(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())

	tests := []struct {
		condition string
		want      string
	}{
		{"true", "true"},
		{"1", "true"},
		{" True ", "true"},
		{"false", "false"},
		{"0", "false"},
		{"FALSE", "false"},
	}

	for _, tt := range tests {
		result, err := h.Handle(context.Background(), map[string]interface{}{
			"condition": tt.condition,
		}, nil)
		if err != nil {
			t.Fatalf("condition %q: %v", tt.condition, err)
		}
		if result["branch_taken"] != tt.want {
			t.Errorf("condition %q: branch_taken = %v, want %v", tt.condition, result["branch_taken"], tt.want)
		}
	}
}

func TestConditional_ExpressionAgainstState(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())
	state := map[string]interface{}{"document_type": "nda"}

	result, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": `document_type == "nda"`,
	}, state)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result["branch_taken"] != "true" {
		t.Errorf("branch_taken = %v, want true", result["branch_taken"])
	}

	// The same state is addressable through the "state" key.
	result, err = h.Handle(context.Background(), map[string]interface{}{
		"condition": `state.document_type == "contract"`,
	}, state)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result["branch_taken"] != "false" {
		t.Errorf("branch_taken = %v, want false", result["branch_taken"])
	}
}

func TestConditional_UndefinedVariableIsFalse(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())

	result, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": `document_type == "nda"`,
	}, map[string]interface{}{})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result["branch_taken"] != "false" {
		t.Errorf("branch_taken = %v, want false", result["branch_taken"])
	}
}

func TestConditional_DispatchesBranch(t *testing.T) {
	registry := NewRegistry()

	var gotConfig map[string]interface{}
	registry.Register("probe", func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		gotConfig = config
		return map[string]interface{}{"status": "success", "probe": "ran"}, nil
	})

	h := NewConditionalHandler(registry, discardLogger())
	result, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": "true",
		"if_true": map[string]interface{}{
			"type":   "probe",
			"config": map[string]interface{}{"marker": "inner"},
		},
		"if_false": map[string]interface{}{
			"type": "probe",
		},
	}, nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if result["probe"] != "ran" {
		t.Errorf("result = %#v, want the branch handler result passed through", result)
	}
	if gotConfig["marker"] != "inner" {
		t.Errorf("branch config = %#v, want marker inner", gotConfig)
	}
}

func TestConditional_FalseBranchDispatch(t *testing.T) {
	registry := NewRegistry()

	var ran string
	registry.Register("probe", func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		ran, _ = config["which"].(string)
		return map[string]interface{}{"status": "success"}, nil
	})

	h := NewConditionalHandler(registry, discardLogger())
	_, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": "false",
		"if_true": map[string]interface{}{
			"type":   "probe",
			"config": map[string]interface{}{"which": "true-branch"},
		},
		"if_false": map[string]interface{}{
			"type":   "probe",
			"config": map[string]interface{}{"which": "false-branch"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if ran != "false-branch" {
		t.Errorf("dispatched branch = %q, want false-branch", ran)
	}
}

func TestConditional_UnregisteredBranchType(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())

	result, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": "true",
		"if_true": map[string]interface{}{
			"type": "no_such_type",
		},
	}, nil)
	if err != nil {
		t.Fatalf("unregistered branch type must not fail the step: %v", err)
	}
	if result["branch_taken"] != "true" {
		t.Errorf("branch_taken = %v, want true", result["branch_taken"])
	}
}

func TestConditional_MissingCondition(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())

	_, err := h.Handle(context.Background(), map[string]interface{}{}, nil)
	if err == nil {
		t.Fatal("expected error for missing condition")
	}

	var validationErr *errors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %T, want *errors.ValidationError", err)
	}
	if validationErr.Field != "condition" {
		t.Errorf("Field = %q, want condition", validationErr.Field)
	}
}

func TestConditional_BadExpression(t *testing.T) {
	h := NewConditionalHandler(NewRegistry(), discardLogger())

	_, err := h.Handle(context.Background(), map[string]interface{}{
		"condition": "(((",
	}, nil)
	if err == nil {
		t.Fatal("expected error for unparseable condition")
	}

	var validationErr *errors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %T, want *errors.ValidationError", err)
	}
}
