// Package agent implements the tool-calling orchestration loop: it sends the
// conversation to the model, dispatches any tool requests through the
// registry, feeds the results back, and repeats until the model produces a
// final text answer or the turn limit is hit.
package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/leadscout/leadscout/internal/log"
	"github.com/leadscout/leadscout/internal/tools"
)

// DefaultSystemPrompt is the model's base instruction when none is configured.
const DefaultSystemPrompt = "You are a helpful assistant"

// StreamCallback receives text deltas as the model produces them. Returning an
// error aborts the run; the error propagates out of RunStream.
type StreamCallback func(ctx context.Context, delta string) error

// Config configures an Agent.
type Config struct {
	// ModelName is the provider-qualified model, e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string

	// MaxTurns caps tool-call round trips per run. Must be >= 1.
	MaxTurns int

	// RunTimeout bounds a whole run including all tool calls. Must be > 0.
	RunTimeout time.Duration

	// GenerationConfig is passed through to the model provider untouched
	// (e.g. *genai.GenerateContentConfig for Gemini). Optional.
	GenerationConfig any

	// Retry controls model-call retry behavior. Zero value means
	// DefaultRetryConfig().
	Retry RetryConfig
}

func (c *Config) validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max turns must be >= 1, got %d", c.MaxTurns)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be > 0, got %v", c.RunTimeout)
	}
	return nil
}

// ToolInvocation records one tool call made during a run, in execution order.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
	Output    any    `json:"output,omitempty"`
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	// Text is the model's final answer. Never empty: an empty model response
	// is replaced with FallbackResponseMessage.
	Text string

	// Invocations lists the tool calls made, in order.
	Invocations []ToolInvocation
}

// Agent runs the chat orchestration loop against a Genkit model using the
// tools in its registry.
//
// Thread Safety: safe for concurrent use; each run carries its own state.
type Agent struct {
	g            *genkit.Genkit
	registry     *tools.Registry
	cfg          Config
	systemPrompt string
	retryConfig  RetryConfig
	logger       log.Logger
}

// New creates an Agent. The registry may be empty but not nil; an empty
// registry produces a plain chat agent with no tools.
func New(g *genkit.Genkit, registry *tools.Registry, cfg Config, logger log.Logger) (*Agent, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	retryConfig := cfg.Retry
	if retryConfig == (RetryConfig{}) {
		retryConfig = DefaultRetryConfig()
	}

	return &Agent{
		g:            g,
		registry:     registry,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		retryConfig:  retryConfig,
		logger:       logger,
	}, nil
}

// Run executes one chat request without streaming.
func (a *Agent) Run(ctx context.Context, message string, history []Message) (*RunResult, error) {
	return a.run(ctx, message, history, nil)
}

// RunStream executes one chat request, forwarding text deltas to cb as the
// model produces them. The returned RunResult carries the complete final text
// regardless of what was streamed.
func (a *Agent) RunStream(ctx context.Context, message string, history []Message, cb StreamCallback) (*RunResult, error) {
	return a.run(ctx, message, history, cb)
}

func (a *Agent) run(ctx context.Context, message string, history []Message, cb StreamCallback) (*RunResult, error) {
	prompt, err := BuildPrompt(message, history)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
	defer cancel()

	// streamed flips once any delta reaches the caller; from then on model
	// calls must not be retried.
	var streamed atomic.Bool
	var streamCb ai.ModelStreamCallback
	if cb != nil {
		streamCb = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				streamed.Store(true)
				if err := cb(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}
	}

	msgs := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(prompt))}
	var invocations []ToolInvocation

	for turn := 0; turn < a.cfg.MaxTurns; turn++ {
		opts := []ai.GenerateOption{
			ai.WithModelName(a.cfg.ModelName),
			ai.WithSystem(a.systemPrompt),
			ai.WithMessages(msgs...),
			ai.WithReturnToolRequests(true),
		}
		if refs := a.registry.Refs(); len(refs) > 0 {
			opts = append(opts, ai.WithTools(refs...))
		}
		if a.cfg.GenerationConfig != nil {
			opts = append(opts, ai.WithConfig(a.cfg.GenerationConfig))
		}
		if streamCb != nil {
			opts = append(opts, ai.WithStreaming(streamCb))
		}

		resp, err := a.generateWithRetry(ctx, opts, streamed.Load)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
		}

		reqs := resp.ToolRequests()
		if len(reqs) == 0 {
			text := resp.Text()
			if text == "" {
				a.logger.Warn("model returned empty response, using fallback")
				text = FallbackResponseMessage
			}
			a.logger.Info("run completed", "turns", turn+1, "tool_calls", len(invocations))
			return &RunResult{Text: text, Invocations: invocations}, nil
		}

		toolParts := make([]*ai.Part, 0, len(reqs))
		for _, req := range reqs {
			tool, ok := a.registry.Get(req.Name)
			if !ok {
				a.logger.Error("model requested unregistered tool", "tool", req.Name)
				return nil, fmt.Errorf("%w: %q", ErrUnknownTool, req.Name)
			}

			a.logger.Info("invoking tool", "tool", req.Name, "turn", turn+1)
			output, err := tool.RunRaw(ctx, req.Input)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrToolFailed, req.Name, err)
			}

			invocations = append(invocations, ToolInvocation{
				Name:      req.Name,
				Arguments: req.Input,
				Output:    output,
			})
			toolParts = append(toolParts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: output,
			}))
		}

		msgs = append(msgs, resp.Message, &ai.Message{
			Role:    ai.RoleTool,
			Content: toolParts,
		})
	}

	a.logger.Error("turn limit exceeded", "max_turns", a.cfg.MaxTurns)
	return nil, fmt.Errorf("%w: %d turns", ErrTurnLimit, a.cfg.MaxTurns)
}
