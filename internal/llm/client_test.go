package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dulicode/better-prompts/internal/log"
)

// chatServer returns an httptest server speaking a minimal OpenAI-compatible
// chat completions API, recording the last request body.
func chatServer(t *testing.T, status int, reply string, lastReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if lastReq != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			*lastReq = body
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{Model: "gpt-4o-mini"}, log.NewNop())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("New() = %v, want ErrMissingAPIKey", err)
	}
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	var lastReq map[string]any
	srv := chatServer(t, http.StatusOK, "enhanced output", &lastReq)
	defer srv.Close()

	c, err := New(Config{APIBase: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini"}, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	got, err := c.Complete(context.Background(), "system instruction", "user question")
	if err != nil {
		t.Fatalf("Complete() = %v", err)
	}
	if got != "enhanced output" {
		t.Errorf("Complete() = %q, want %q", got, "enhanced output")
	}

	msgs, ok := lastReq["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want 2 entries", lastReq["messages"])
	}
	first := msgs[0].(map[string]any)
	second := msgs[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "system instruction" {
		t.Errorf("first message = %v", first)
	}
	if second["role"] != "user" || second["content"] != "user question" {
		t.Errorf("second message = %v", second)
	}
	if lastReq["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", lastReq["model"])
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	c, err := New(Config{APIBase: srv.URL, APIKey: "test-key", Model: "gpt-4o-mini"}, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	if _, err := c.Complete(context.Background(), "sys", "user"); !errors.Is(err, ErrCallFailed) {
		t.Fatalf("Complete() = %v, want ErrCallFailed", err)
	}
}

func TestCompleteUnreachableEndpoint(t *testing.T) {
	c, err := New(Config{APIBase: "http://127.0.0.1:1/v1", APIKey: "test-key", Model: "m"}, log.NewNop())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	if _, err := c.Complete(context.Background(), "sys", "user"); !errors.Is(err, ErrCallFailed) {
		t.Fatalf("Complete() = %v, want ErrCallFailed", err)
	}
}
