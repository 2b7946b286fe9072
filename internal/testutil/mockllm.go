// Package testutil provides deterministic test doubles for the model layer.
package testutil

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ModelName is the reference under which the scripted model registers.
const ModelName = "mock/cellar-model"

// ScriptTurn is one scripted model reply: tool requests, text, or both.
type ScriptTurn struct {
	Text  string
	Tools []*ai.ToolRequest
}

// ScriptedLLM plays back a fixed sequence of model replies.
//
// Each generate call consumes the next scripted turn. When the script runs
// out, the model repeats the loop turn if one is set, otherwise it answers
// with the fallback text. The loop turn is how tests drive a conversation
// into the iteration bound: a model that requests tools forever.
//
// Thread-safe for concurrent use.
type ScriptedLLM struct {
	mu       sync.Mutex
	script   []ScriptTurn
	failures []error
	loop     *ScriptTurn
	fallback string
	requests []*ai.ModelRequest
}

// NewScriptedLLM creates a scripted model with the given fallback text.
func NewScriptedLLM(fallback string) *ScriptedLLM {
	return &ScriptedLLM{fallback: fallback}
}

// Queue appends turns to the script.
func (s *ScriptedLLM) Queue(turns ...ScriptTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, turns...)
}

// QueueText appends a text-only turn.
func (s *ScriptedLLM) QueueText(text string) {
	s.Queue(ScriptTurn{Text: text})
}

// QueueToolCalls appends a turn that requests the given tools.
func (s *ScriptedLLM) QueueToolCalls(tools ...*ai.ToolRequest) {
	s.Queue(ScriptTurn{Tools: tools})
}

// FailNext makes the next generate call return err instead of a reply.
// Queued failures are served before scripted turns.
func (s *ScriptedLLM) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// LoopToolCalls makes the model request the given tools on every call after
// the script is exhausted. Used to exercise iteration bounds.
func (s *ScriptedLLM) LoopToolCalls(tools ...*ai.ToolRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = &ScriptTurn{Tools: tools}
}

// Calls returns how many generate calls the model has served.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent model request, or nil.
func (s *ScriptedLLM) LastRequest() *ai.ModelRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// Register registers the scripted model with Genkit.
func (s *ScriptedLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ModelName, &ai.ModelOptions{
		Label: "Scripted Cellar Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, s.generate)
}

func (s *ScriptedLLM) generate(_ context.Context, req *ai.ModelRequest, _ ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return nil, err
	}

	var turn ScriptTurn
	switch {
	case len(s.script) > 0:
		turn = s.script[0]
		s.script = s.script[1:]
	case s.loop != nil:
		turn = *s.loop
	default:
		turn = ScriptTurn{Text: s.fallback}
	}
	s.mu.Unlock()

	var parts []*ai.Part
	for _, tr := range turn.Tools {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	if turn.Text != "" || len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(turn.Text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}
