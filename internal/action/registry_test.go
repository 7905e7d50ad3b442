package action

import (
	"context"
	"reflect"
	"testing"

	"github.com/tombee/docflow/pkg/errors"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	called := false

	r.Register("probe", func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		called = true
		return map[string]interface{}{"status": "success"}, nil
	})

	handler, err := r.Get("probe")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if _, err := handler(context.Background(), nil, nil); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !called {
		t.Error("registered handler was not invoked")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("no_such_type")
	if err == nil {
		t.Fatal("expected error for unknown step type")
	}

	var notFound *errors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if notFound.Resource != "action" {
		t.Errorf("Resource = %q, want action", notFound.Resource)
	}
	if notFound.ID != "no_such_type" {
		t.Errorf("ID = %q, want no_such_type", notFound.ID)
	}
}

func TestRegistry_Has(t *testing.T) {
	r := NewRegistry()
	r.Register("probe", func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	})

	if !r.Has("probe") {
		t.Error("Has should report registered types")
	}
	if r.Has("missing") {
		t.Error("Has should not report unregistered types")
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	r.Register("echo_config", func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"status": "success", "got": config["value"]}, nil
	})

	result, err := r.Execute(context.Background(), "echo_config", map[string]interface{}{"value": "x"}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result["got"] != "x" {
		t.Errorf("got = %v, want x", result["got"])
	}

	if _, err := r.Execute(context.Background(), "missing", nil, nil); err == nil {
		t.Error("Execute should fail for unknown type")
	}
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry()
	noop := func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	}
	r.Register("b_type", noop)
	r.Register("a_type", noop)

	want := []string{"a_type", "b_type"}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r, BuiltinConfig{})

	for _, stepType := range []string{
		"api_call", "webhook", "mcp_task", "send_email",
		"data_transform", "transform", "conditional", "parallel",
		"claude_analyze",
	} {
		if !r.Has(stepType) {
			t.Errorf("builtin %q not registered", stepType)
		}
	}
}
