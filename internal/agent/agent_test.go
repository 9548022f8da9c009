package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/leadscout/leadscout/internal/log"
	"github.com/leadscout/leadscout/internal/testutil"
	"github.com/leadscout/leadscout/internal/tools"
)

type echoInput struct {
	Query string `json:"query"`
}

// newTestAgent wires a scripted model, an "echo" tool, and a "fail" tool into
// a fresh agent. Each test gets its own Genkit instance to avoid cross-test
// registration collisions.
func newTestAgent(t *testing.T, model *testutil.ScriptedModel, maxTurns int) *Agent {
	t.Helper()

	g := genkit.Init(context.Background())
	model.Register(g)

	reg := tools.NewRegistry()

	echo := genkit.DefineTool(g, "echo", "echoes its input",
		func(ctx *ai.ToolContext, input echoInput) (string, error) {
			return "echo: " + input.Query, nil
		})
	fail := genkit.DefineTool(g, "fail", "always fails",
		func(ctx *ai.ToolContext, input echoInput) (string, error) {
			return "", &tools.Error{Kind: tools.KindUpstreamStatus, Stage: "search", Status: http.StatusBadGateway}
		})
	for _, tool := range []ai.Tool{echo, fail} {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	a, err := New(g, reg, Config{
		ModelName:  testutil.ScriptedModelName,
		MaxTurns:   maxTurns,
		RunTimeout: 10 * time.Second,
		Retry: RetryConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func toolRequest(name, query string) *ai.ToolRequest {
	return &ai.ToolRequest{
		Name:  name,
		Ref:   "call-1",
		Input: map[string]any{"query": query},
	}
}

func TestAgent_Run_PlainAnswer(t *testing.T) {
	model := testutil.NewScriptedModel(testutil.ModelTurn{Text: "hello there"})
	a := newTestAgent(t, model, 5)

	result, err := a.Run(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Text != "hello there" {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.Invocations) != 0 {
		t.Errorf("Invocations = %v, want none", result.Invocations)
	}
}

func TestAgent_Run_ToolCallLoop(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{ToolRequests: []*ai.ToolRequest{toolRequest("echo", "ping")}},
		testutil.ModelTurn{Text: "the tool said: echo: ping"},
	)
	a := newTestAgent(t, model, 5)

	result, err := a.Run(context.Background(), "use the echo tool", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Text != "the tool said: echo: ping" {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.Invocations) != 1 || result.Invocations[0].Name != "echo" {
		t.Errorf("Invocations = %v", result.Invocations)
	}

	// The second model call must carry the tool result back.
	calls := model.Calls()
	if len(calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(calls))
	}
	var sawToolResponse bool
	for _, msg := range calls[1].Messages {
		if msg.Role != ai.RoleTool {
			continue
		}
		for _, part := range msg.Content {
			if part.ToolResponse != nil && part.ToolResponse.Name == "echo" {
				sawToolResponse = true
			}
		}
	}
	if !sawToolResponse {
		t.Error("second model call missing echo tool response message")
	}
}

func TestAgent_Run_PromptIncludesHistory(t *testing.T) {
	model := testutil.NewScriptedModel(testutil.ModelTurn{Text: "ok"})
	a := newTestAgent(t, model, 5)

	history := []Message{{Sender: SenderUser, Text: "earlier question"}}
	if _, err := a.Run(context.Background(), "follow-up", history); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := model.Calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	var userText string
	for _, msg := range calls[0].Messages {
		if msg.Role == ai.RoleUser {
			userText = msg.Text()
		}
	}
	if !strings.HasPrefix(userText, "follow-up"+historyPreamble) {
		t.Errorf("user prompt = %q, want message+history", userText)
	}
	if !strings.Contains(userText, "earlier question") {
		t.Errorf("user prompt missing history text: %q", userText)
	}
	if calls[0].System != DefaultSystemPrompt {
		t.Errorf("system prompt = %q, want %q", calls[0].System, DefaultSystemPrompt)
	}
}

func TestAgent_Run_UnknownTool(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{ToolRequests: []*ai.ToolRequest{toolRequest("nonexistent", "x")}},
	)
	a := newTestAgent(t, model, 5)

	_, err := a.Run(context.Background(), "hi", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("Run = %v, want ErrUnknownTool", err)
	}
}

func TestAgent_Run_ToolFailurePreservesClassification(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{ToolRequests: []*ai.ToolRequest{toolRequest("fail", "x")}},
	)
	a := newTestAgent(t, model, 5)

	_, err := a.Run(context.Background(), "hi", nil)
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("Run = %v, want ErrToolFailed", err)
	}

	te, ok := tools.AsError(err)
	if !ok {
		t.Fatalf("tool error classification lost in chain: %v", err)
	}
	if te.Kind != tools.KindUpstreamStatus || te.Status != http.StatusBadGateway {
		t.Errorf("got kind=%q status=%d", te.Kind, te.Status)
	}
}

func TestAgent_Run_TurnLimit(t *testing.T) {
	// The model keeps requesting tools forever.
	model := testutil.NewScriptedModel()
	for i := 0; i < 10; i++ {
		model.Enqueue(testutil.ModelTurn{ToolRequests: []*ai.ToolRequest{toolRequest("echo", "again")}})
	}
	a := newTestAgent(t, model, 3)

	_, err := a.Run(context.Background(), "hi", nil)
	if !errors.Is(err, ErrTurnLimit) {
		t.Errorf("Run = %v, want ErrTurnLimit", err)
	}
	if calls := model.Calls(); len(calls) != 3 {
		t.Errorf("model calls = %d, want exactly max turns (3)", len(calls))
	}
}

func TestAgent_Run_EmptyResponseFallback(t *testing.T) {
	model := testutil.NewScriptedModel(testutil.ModelTurn{Text: ""})
	a := newTestAgent(t, model, 5)

	result, err := a.Run(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Text != FallbackResponseMessage {
		t.Errorf("Text = %q, want fallback", result.Text)
	}
}

func TestAgent_Run_EmptyMessage(t *testing.T) {
	model := testutil.NewScriptedModel()
	a := newTestAgent(t, model, 5)

	if _, err := a.Run(context.Background(), "  ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Run = %v, want ErrEmptyMessage", err)
	}
	if calls := model.Calls(); len(calls) != 0 {
		t.Errorf("model called %d times for invalid input", len(calls))
	}
}

func TestAgent_Run_ModelError(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{Err: fmt.Errorf("invalid api key")}, // not retryable
	)
	a := newTestAgent(t, model, 5)

	_, err := a.Run(context.Background(), "hi", nil)
	if !errors.Is(err, ErrModelFailed) {
		t.Errorf("Run = %v, want ErrModelFailed", err)
	}
	if calls := model.Calls(); len(calls) != 1 {
		t.Errorf("non-retryable error retried: %d calls", len(calls))
	}
}

func TestAgent_Run_RetriesTransientError(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{Err: fmt.Errorf("503 service unavailable")},
		testutil.ModelTurn{Text: "recovered"},
	)
	a := newTestAgent(t, model, 5)

	result, err := a.Run(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("Text = %q", result.Text)
	}
	if calls := model.Calls(); len(calls) != 2 {
		t.Errorf("model calls = %d, want 2 (one retry)", len(calls))
	}
}

func TestAgent_RunStream_ForwardsDeltas(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{Chunks: []string{"Hel", "lo"}, Text: "Hello"},
	)
	a := newTestAgent(t, model, 5)

	var mu sync.Mutex
	var deltas []string
	result, err := a.RunStream(context.Background(), "hi", nil, func(_ context.Context, delta string) error {
		mu.Lock()
		deltas = append(deltas, delta)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if result.Text != "Hello" {
		t.Errorf("Text = %q", result.Text)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("deltas = %v, want [Hel lo]", deltas)
	}
}

func TestAgent_RunStream_StreamsAcrossToolTurns(t *testing.T) {
	// The model streams text before requesting a tool, then streams the final
	// answer on the next turn. Callers see all deltas in order, while the
	// result text is the final turn's answer only.
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{
			Chunks:       []string{"Searching... "},
			ToolRequests: []*ai.ToolRequest{toolRequest("echo", "capital of France")},
		},
		testutil.ModelTurn{Chunks: []string{"Paris"}, Text: "Paris"},
	)
	a := newTestAgent(t, model, 5)

	var mu sync.Mutex
	var deltas []string
	result, err := a.RunStream(context.Background(), "capital of France?", nil, func(_ context.Context, delta string) error {
		mu.Lock()
		deltas = append(deltas, delta)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if result.Text != "Paris" {
		t.Errorf("Text = %q, want final turn's answer", result.Text)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(deltas) != 2 || deltas[0] != "Searching... " || deltas[1] != "Paris" {
		t.Errorf("deltas = %v, want [Searching...  Paris]", deltas)
	}
}

func TestAgent_RunStream_NoRetryAfterDelta(t *testing.T) {
	// Retryable failure, but a delta already went out on the same call.
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{Chunks: []string{"Hel"}, Err: fmt.Errorf("503 service unavailable")},
		testutil.ModelTurn{Text: "should never be reached"},
	)
	a := newTestAgent(t, model, 5)

	_, err := a.RunStream(context.Background(), "hi", nil, func(context.Context, string) error {
		return nil
	})
	if !errors.Is(err, ErrModelFailed) {
		t.Fatalf("RunStream = %v, want ErrModelFailed", err)
	}
	if calls := model.Calls(); len(calls) != 1 {
		t.Errorf("model calls = %d, want 1 (no retry after streamed output)", len(calls))
	}
}

func TestAgent_RunStream_CallbackErrorAborts(t *testing.T) {
	model := testutil.NewScriptedModel(
		testutil.ModelTurn{Chunks: []string{"a", "b", "c"}, Text: "abc"},
	)
	a := newTestAgent(t, model, 5)

	sentinel := errors.New("client went away")
	var count int
	_, err := a.RunStream(context.Background(), "hi", nil, func(context.Context, string) error {
		count++
		if count == 2 {
			return sentinel
		}
		return nil
	})
	if err == nil {
		t.Fatal("RunStream succeeded despite callback error")
	}
	if count != 2 {
		t.Errorf("callback invoked %d times after abort, want 2", count)
	}
}

func TestNew_Validation(t *testing.T) {
	g := genkit.Init(context.Background())
	reg := tools.NewRegistry()
	valid := Config{ModelName: "mock/m", MaxTurns: 5, RunTimeout: time.Second}

	if _, err := New(nil, reg, valid, nil); err == nil {
		t.Error("nil genkit accepted")
	}
	if _, err := New(g, nil, valid, nil); err == nil {
		t.Error("nil registry accepted")
	}

	bad := valid
	bad.ModelName = ""
	if _, err := New(g, reg, bad, nil); err == nil {
		t.Error("empty model name accepted")
	}

	bad = valid
	bad.MaxTurns = 0
	if _, err := New(g, reg, bad, nil); err == nil {
		t.Error("zero max turns accepted")
	}

	bad = valid
	bad.RunTimeout = 0
	if _, err := New(g, reg, bad, nil); err == nil {
		t.Error("zero run timeout accepted")
	}
}
