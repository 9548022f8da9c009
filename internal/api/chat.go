package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/leadscout/leadscout/internal/agent"
	"github.com/leadscout/leadscout/internal/log"
	"github.com/leadscout/leadscout/internal/tools"
)

// maxRequestBody caps chat request bodies at 1MB.
const maxRequestBody = 1024 * 1024

// ChatRequest is the request body for both chat endpoints. History is
// client-supplied; the server keeps no conversation state.
type ChatRequest struct {
	Message string          `json:"message"`
	History []agent.Message `json:"chatHistory,omitempty"`
}

// ChatResponse is the non-streaming success response.
type ChatResponse struct {
	Text string `json:"text"`
}

// runner is the agent dependency of the chat handler. Satisfied by *agent.Agent.
type runner interface {
	Run(ctx context.Context, message string, history []agent.Message) (*agent.RunResult, error)
	RunStream(ctx context.Context, message string, history []agent.Message, cb agent.StreamCallback) (*agent.RunResult, error)
}

// chatHandler serves the chat endpoints:
//   - POST /agent/chat        - synchronous chat (JSON request/response)
//   - POST /agent/chat/stream - streaming chat (Server-Sent Events)
type chatHandler struct {
	agent  runner
	logger log.Logger
}

// decodeRequest parses and validates the chat request body.
// Returns an error code and message suitable for a 400 response on failure.
func (h *chatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, string, string) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "invalid_request", "invalid request body"
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, "invalid_request", "message is required"
	}
	for _, m := range req.History {
		if !m.Sender.Valid() {
			return nil, "invalid_request", "history entries must have sender \"user\" or \"bot\""
		}
	}
	return &req, "", ""
}

// send handles POST /agent/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, code, msg := h.decodeRequest(w, r)
	if req == nil {
		writeError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}

	result, err := h.agent.Run(r.Context(), req.Message, req.History)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Info("client disconnected during chat")
			return
		}
		status, code := statusForError(err)
		h.logger.Error("chat run failed", "error", err, "status", status)
		writeError(w, status, code, "failed to process message", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Text: result.Text}, h.logger)
}

// stream handles POST /agent/chat/stream.
//
// Validation failures are reported as plain JSON before the stream starts.
// After that the response is an SSE stream of cumulative-text frames ending in
// exactly one terminal frame; run failures surface as the fixed apology frame,
// never as internal error details.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, code, msg := h.decodeRequest(w, r)
	if req == nil {
		writeError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}

	em, err := newStreamEmitter(w, h.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported", h.logger)
		return
	}

	// The run produces deltas on its own schedule; a bounded channel decouples
	// it from SSE writes. r.Context() is canceled when the client disconnects,
	// which aborts the in-flight run promptly.
	ctx, cancelRun := context.WithCancel(r.Context())
	defer cancelRun()

	h.logger.Debug("SSE stream started")

	type outcome struct {
		result *agent.RunResult
		err    error
	}
	deltas := make(chan string, 16)
	done := make(chan outcome, 1)

	go func() {
		result, err := h.agent.RunStream(ctx, req.Message, req.History, func(ctx context.Context, delta string) error {
			select {
			case deltas <- delta:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(deltas)
		done <- outcome{result: result, err: err}
	}()

	for delta := range deltas {
		if err := em.Delta(delta); err != nil {
			// Write failure usually means the connection closed; abort the
			// run and drain so the producer never blocks.
			h.logger.Debug("stream write failed, aborting run", "error", err)
			cancelRun()
			for range deltas {
			}
			break
		}
	}

	out := <-done
	if out.err != nil {
		if r.Context().Err() != nil || ctx.Err() != nil {
			h.logger.Info("client disconnected during stream")
			return
		}
		h.logger.Error("stream run failed", "error", out.err)
		em.Fail()
		return
	}

	em.Complete(out.result.Text)
	h.logger.Debug("SSE stream completed")
}

// statusForError maps an agent error to an HTTP status and stable error code.
//
// Tool failures keep their upstream classification: the provider being
// unreachable is a gateway timeout, the provider answering badly is a bad
// gateway. Everything that is our fault maps to 500.
func statusForError(err error) (int, string) {
	if te, ok := tools.AsError(err); ok {
		switch te.Kind {
		case tools.KindNetwork:
			return http.StatusGatewayTimeout, "upstream_unreachable"
		case tools.KindUpstreamStatus:
			return http.StatusBadGateway, "upstream_error"
		case tools.KindExtractionFailed:
			return http.StatusBadGateway, "extraction_failed"
		}
	}

	switch {
	case errors.Is(err, agent.ErrEmptyMessage), errors.Is(err, agent.ErrInvalidHistory):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, agent.ErrUnknownTool):
		return http.StatusInternalServerError, "unknown_tool"
	case errors.Is(err, agent.ErrTurnLimit):
		return http.StatusInternalServerError, "turn_limit_exceeded"
	case errors.Is(err, agent.ErrModelFailed):
		return http.StatusInternalServerError, "model_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
