package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dulicode/better-prompts/internal/log"
	"github.com/dulicode/better-prompts/internal/testutil"
)

func TestExtractReturnsModelOutputVerbatim(t *testing.T) {
	raw := "```json\n[{\"title\":\"Anchoring\",\"description\":\"pricing\",\"methodology\":\"Show a high reference price first.\"}]\n```"

	completer := testutil.NewMockCompleter("")
	completer.AddResponse("anchoring", raw)

	e := New(completer, log.NewNop())

	got, err := e.Extract(context.Background(), "An article about anchoring in pricing.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != raw {
		t.Errorf("Extract() = %q, want the model output untouched", got)
	}
}

func TestExtractWrapsContentInTags(t *testing.T) {
	completer := testutil.NewMockCompleter("[]")
	e := New(completer, log.NewNop())

	if _, err := e.Extract(context.Background(), "body text"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	call := completer.LastCall()
	if !strings.Contains(call.UserPrompt, "<content>\nbody text\n</content>") {
		t.Errorf("user prompt %q should wrap the article in <content> tags", call.UserPrompt)
	}
	if !strings.Contains(call.SystemPrompt, "course designer") {
		t.Errorf("system prompt should set the course designer persona, got %q", call.SystemPrompt)
	}
	if !strings.Contains(call.SystemPrompt, `"methodology"`) {
		t.Errorf("system prompt should spell out the JSON output schema")
	}
}

func TestExtractPropagatesCompleterError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	completer := testutil.NewMockCompleter("")
	completer.FailWith(wantErr)

	e := New(completer, log.NewNop())

	_, err := e.Extract(context.Background(), "some article")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Extract() error = %v, want %v", err, wantErr)
	}
}
