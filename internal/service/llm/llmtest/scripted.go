// Package llmtest provides a scripted stand-in for the LLM provider.
package llmtest

import (
	"context"
	"sync"

	llmprovider "github.com/haowjy/meridian-llm-go"
)

// ScriptedCompleter replays canned responses in order. Once the script runs
// out the last response repeats.
type ScriptedCompleter struct {
	mu        sync.Mutex
	Responses []string
	Model     string
	Err       error
	requests  []*llmprovider.GenerateRequest
}

// NewScriptedCompleter creates a completer that answers with responses in order.
func NewScriptedCompleter(responses ...string) *ScriptedCompleter {
	return &ScriptedCompleter{Responses: responses, Model: "scripted-model"}
}

// GenerateResponse implements llm.Completer.
func (s *ScriptedCompleter) GenerateResponse(ctx context.Context, req *llmprovider.GenerateRequest) (*llmprovider.GenerateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.requests)
	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		return &llmprovider.GenerateResponse{Model: s.Model, StopReason: "end_turn"}, nil
	}
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}

	text := s.Responses[idx]
	return &llmprovider.GenerateResponse{
		Blocks: []*llmprovider.Block{{
			BlockType:   "text",
			Sequence:    0,
			TextContent: &text,
		}},
		Model:        s.Model,
		InputTokens:  100,
		OutputTokens: len(text) / 4,
		StopReason:   "end_turn",
	}, nil
}

// CallCount returns the number of requests received.
func (s *ScriptedCompleter) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastPrompt returns the text of the last user message received.
func (s *ScriptedCompleter) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ""
	}
	req := s.requests[len(s.requests)-1]
	if len(req.Messages) == 0 || len(req.Messages[0].Blocks) == 0 || req.Messages[0].Blocks[0].TextContent == nil {
		return ""
	}
	return *req.Messages[0].Blocks[0].TextContent
}
