package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dulicode/better-prompts/internal/knowledge"
	"github.com/dulicode/better-prompts/internal/log"
	"github.com/dulicode/better-prompts/internal/pipeline"
)

// fakePipeline records calls and returns canned results.
type fakePipeline struct {
	ingestResult  pipeline.IngestResult
	ingestErr     error
	enhanceResult pipeline.EnhanceResult
	enhanceErr    error
	lastContent   string
	lastUserInput string
	lastTopK      int
}

func (f *fakePipeline) Ingest(_ context.Context, content string) (pipeline.IngestResult, error) {
	f.lastContent = content
	return f.ingestResult, f.ingestErr
}

func (f *fakePipeline) Enhance(_ context.Context, userInput string, topK int) (pipeline.EnhanceResult, error) {
	f.lastUserInput = userInput
	f.lastTopK = topK
	return f.enhanceResult, f.enhanceErr
}

func newTestServer(t *testing.T, p Pipeline) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Name:     "better-prompts",
		Version:  "test",
		Pipeline: p,
		Logger:   log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
	return s
}

func TestNewServerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Version: "1.0.0", Pipeline: &fakePipeline{}}},
		{"missing version", Config{Name: "better-prompts", Pipeline: &fakePipeline{}}},
		{"missing pipeline", Config{Name: "better-prompts", Version: "1.0.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Error("NewServer() expected error, got nil")
			}
		})
	}
}

func TestHandleExtractSuccess(t *testing.T) {
	p := &fakePipeline{
		ingestResult: pipeline.IngestResult{
			Extraction: `[{"title":"Anchoring","methodology":"Show a high reference price first."}]`,
			Stored: knowledge.StoreResult{
				StoredCount: 1,
				Items:       []knowledge.ItemStatus{{Title: "Anchoring", ID: "1", Status: "success"}},
			},
			Backend: "local (PostgreSQL + pgvector)",
		},
	}
	s := newTestServer(t, p)

	result, _, err := s.handleExtract(context.Background(), nil, ExtractInput{Content: "article text"})
	if err != nil {
		t.Fatalf("handleExtract() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleExtract() returned error result: %v", result.Content)
	}
	if p.lastContent != "article text" {
		t.Errorf("pipeline received content %q", p.lastContent)
	}

	text := resultText(t, result)
	for _, want := range []string{"Extraction complete!", "Anchoring", "local (PostgreSQL + pgvector)", "Stored count: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("result text missing %q:\n%s", want, text)
		}
	}
}

func TestHandleExtractEmptyContent(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(t, p)

	result, _, err := s.handleExtract(context.Background(), nil, ExtractInput{})
	if err != nil {
		t.Fatalf("handleExtract() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("handleExtract() with empty content should return an error result")
	}
	if p.lastContent != "" {
		t.Errorf("pipeline ran despite empty content")
	}
	if text := resultText(t, result); !strings.Contains(text, "content is required") {
		t.Errorf("error text = %q", text)
	}
}

func TestHandleExtractPipelineFailure(t *testing.T) {
	p := &fakePipeline{
		ingestErr: errors.New("invalid methodology payload: empty payload"),
	}
	s := newTestServer(t, p)

	result, _, err := s.handleExtract(context.Background(), nil, ExtractInput{Content: "weather report"})
	if err != nil {
		t.Fatalf("handleExtract() error = %v, domain failures should be error results", err)
	}
	if !result.IsError {
		t.Fatal("handleExtract() should surface pipeline failures as error results")
	}
	if text := resultText(t, result); !strings.Contains(text, "invalid methodology payload") {
		t.Errorf("error text = %q", text)
	}
}

func TestHandleEnhanceSuccess(t *testing.T) {
	p := &fakePipeline{
		enhanceResult: pipeline.EnhanceResult{
			Retrieved: []knowledge.Methodology{
				{Title: "Anchoring", Content: "Show a high reference price first.", Score: 0.9},
			},
			Backend: "cloud (Dify)",
			Prompt:  `{"prompt":"enhanced"}`,
		},
	}
	s := newTestServer(t, p)

	result, _, err := s.handleEnhance(context.Background(), nil, EnhanceInput{UserInput: "write a banner", TopK: 2})
	if err != nil {
		t.Fatalf("handleEnhance() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("handleEnhance() returned error result: %v", result.Content)
	}
	if p.lastUserInput != "write a banner" || p.lastTopK != 2 {
		t.Errorf("pipeline received (%q, %d)", p.lastUserInput, p.lastTopK)
	}

	text := resultText(t, result)
	for _, want := range []string{"Prompt enhancement complete!", "retrieved: 1", "cloud (Dify)", `{"prompt":"enhanced"}`} {
		if !strings.Contains(text, want) {
			t.Errorf("result text missing %q:\n%s", want, text)
		}
	}
}

func TestHandleEnhanceEmptyInput(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	result, _, err := s.handleEnhance(context.Background(), nil, EnhanceInput{})
	if err != nil {
		t.Fatalf("handleEnhance() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("handleEnhance() with empty user_input should return an error result")
	}
}

func TestHandleEnhanceRetrievalFailure(t *testing.T) {
	p := &fakePipeline{enhanceErr: knowledge.ErrRetrieval}
	s := newTestServer(t, p)

	result, _, err := s.handleEnhance(context.Background(), nil, EnhanceInput{UserInput: "anything"})
	if err != nil {
		t.Fatalf("handleEnhance() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("handleEnhance() should surface retrieval failures as error results")
	}
}
