package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

func TestNew_NoKeyDisabled(t *testing.T) {
	c, err := New(logger.Nop(), Config{})
	if err != nil || c != nil {
		t.Fatalf("expected disabled client, got %v %v", c, err)
	}
}

func TestClient_CompleteJSON(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"facts\":{\"destination\":\"Cyprus\"}}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "test-model"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.CompleteJSON(context.Background(), "system prompt", "moving to Cyprus")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"facts":{"destination":"Cyprus"}}` {
		t.Fatalf("content=%q", out)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("request model=%v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %v", gotBody["messages"])
	}
}
