package engine

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/Veraticus/sift/internal/llm"
)

// MockProvider is a test implementation of llm.Provider.
// When Respond is set it answers every call; otherwise it answers each
// prompted item with Decide, or "yes" when Decide is nil.
type MockProvider struct {
	Respond  func(call int, req llm.CompletionRequest) (llm.CompletionResponse, error)
	Decide   func(item string) bool
	requests []llm.CompletionRequest
	mu       sync.Mutex
}

// NewMockProvider creates a mock provider that decides each item with decide.
func NewMockProvider(decide func(item string) bool) *MockProvider {
	return &MockProvider{Decide: decide}
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Complete records req and produces a scripted answer.
func (m *MockProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	respond := m.Respond
	decide := m.Decide
	m.mu.Unlock()

	if respond != nil {
		return respond(call, req)
	}

	items := PromptItems(req)
	answers := make([]string, len(items))
	for i, item := range items {
		if decide == nil || decide(item) {
			answers[i] = AnswerYes
		} else {
			answers[i] = AnswerNo
		}
	}
	return llm.CompletionResponse{Content: strings.Join(answers, ","), FinishReason: "stop"}, nil
}

// Calls returns the number of Complete invocations so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

var promptItemLine = regexp.MustCompile(`^(\d+)\. (.*)$`)

// PromptItems recovers the numbered items from a request built by BuildPrompt.
func PromptItems(req llm.CompletionRequest) []string {
	var items []string
	for _, msg := range req.Messages {
		if msg.Role != llm.RoleUser {
			continue
		}
		for _, line := range strings.Split(msg.Content, "\n") {
			if m := promptItemLine.FindStringSubmatch(line); m != nil {
				items = append(items, m[2])
			}
		}
	}
	return items
}
