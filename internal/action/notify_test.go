package action

import (
	"context"
	"testing"
)

func TestNotify(t *testing.T) {
	h := NewNotifyHandler(discardLogger())

	result, err := h(context.Background(), map[string]interface{}{
		"to":      "legal@example.com",
		"subject": "Review complete",
		"body":    "The document has been reviewed.",
	}, nil)
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if result["status"] != "success" {
		t.Errorf("status = %v, want success", result["status"])
	}
	if result["sent_to"] != "legal@example.com" {
		t.Errorf("sent_to = %v, want legal@example.com", result["sent_to"])
	}
	if result["subject"] != "Review complete" {
		t.Errorf("subject = %v, want Review complete", result["subject"])
	}
}

func TestNotify_Defaults(t *testing.T) {
	h := NewNotifyHandler(discardLogger())

	result, err := h(context.Background(), map[string]interface{}{}, nil)
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if result["sent_to"] != "" {
		t.Errorf("sent_to = %v, want empty string", result["sent_to"])
	}
	if result["status"] != "success" {
		t.Errorf("status = %v, want success", result["status"])
	}
}
