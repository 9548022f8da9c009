// Package testutil provides test doubles and helpers shared across packages:
// a scripted Genkit model and an SSE stream parser.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptedModelName is the provider-qualified name the scripted model is
// registered under. Point the agent's ModelName at this in tests.
const ScriptedModelName = "mock/scripted-model"

// ModelTurn scripts one model response. Turns are consumed in order, one per
// generate call, so multi-turn tool-calling loops can be scripted exactly.
type ModelTurn struct {
	Chunks       []string          // streamed as deltas before the response, when a callback is set
	Text         string            // final text part
	ToolRequests []*ai.ToolRequest // tool calls to request (nil = text only)
	Err          error             // returned instead of a response
}

// ModelCall records one generate call made against the scripted model.
type ModelCall struct {
	Messages []*ai.Message // request messages at call time
	System   string        // system prompt text, if any
}

// ScriptedModel is a deterministic Genkit model that replays a fixed sequence
// of turns. Unlike a pattern-matching mock, a queue works with orchestration
// loops that re-send the same user text on every turn.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu    sync.Mutex
	turns []ModelTurn
	calls []ModelCall
}

// NewScriptedModel creates a scripted model that replays turns in order.
func NewScriptedModel(turns ...ModelTurn) *ScriptedModel {
	return &ScriptedModel{turns: turns}
}

// Enqueue appends a turn to the script.
func (m *ScriptedModel) Enqueue(turn ModelTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
}

// Calls returns a copy of all recorded calls.
func (m *ScriptedModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Register registers the scripted model with Genkit under ScriptedModelName.
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ScriptedModelName, &ai.ModelOptions{
		Label: "Scripted Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	var system string
	var msgs []*ai.Message
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleSystem {
			system = msg.Text()
			continue
		}
		msgs = append(msgs, msg)
	}
	m.calls = append(m.calls, ModelCall{Messages: msgs, System: system})

	if len(m.turns) == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("scripted model: script exhausted after %d calls", len(m.calls))
	}
	turn := m.turns[0]
	m.turns = m.turns[1:]
	m.mu.Unlock()

	if cb != nil {
		for _, chunk := range turn.Chunks {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(chunk)},
			}); err != nil {
				return nil, err
			}
		}
	}

	if turn.Err != nil {
		return nil, turn.Err
	}

	var parts []*ai.Part
	for _, tr := range turn.ToolRequests {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	if turn.Text != "" {
		parts = append(parts, ai.NewTextPart(turn.Text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}
