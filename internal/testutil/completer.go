// Package testutil provides shared testing utilities for better-prompts,
// following the pattern of net/http/httptest: reusable fakes that several
// packages' tests depend on.
package testutil

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter provides deterministic chat completions for testing. It
// matches the user prompt against registered substring patterns and returns
// the corresponding response, recording every call.
//
// Safe for concurrent use.
type MockCompleter struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	calls    []CompleterCall
	err      error
}

type mockRule struct {
	pattern  string
	response string
}

// CompleterCall records a single Complete invocation.
type CompleterCall struct {
	SystemPrompt string
	UserPrompt   string
	Response     string
}

// NewMockCompleter creates a mock completer with the given fallback
// response, returned when no pattern matches.
func NewMockCompleter(fallback string) *MockCompleter {
	return &MockCompleter{fallback: fallback}
}

// AddResponse registers a pattern-response pair. When the user prompt
// contains the pattern (case-insensitive), the response is returned.
// Patterns are checked in registration order; first match wins.
func (m *MockCompleter) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// FailWith makes every subsequent Complete call return err.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete implements the completer contract used by the extractor and
// the enhancer.
func (m *MockCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	response := m.fallback
	lower := strings.ToLower(userPrompt)
	for _, r := range m.rules {
		if strings.Contains(lower, r.pattern) {
			response = r.response
			break
		}
	}

	m.calls = append(m.calls, CompleterCall{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Response:     response,
	})
	return response, nil
}

// Calls returns a copy of all recorded calls.
func (m *MockCompleter) Calls() []CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]CompleterCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// LastCall returns the most recent call, or a zero value if none happened.
func (m *MockCompleter) LastCall() CompleterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return CompleterCall{}
	}
	return m.calls[len(m.calls)-1]
}
