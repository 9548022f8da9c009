package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/leadscout/leadscout/internal/log"
)

// ApologyMessage is the fixed text sent to streaming clients when a run fails
// after streaming has begun. Internal error details never reach the client.
const ApologyMessage = "Sorry, I encountered an error while processing your message."

// streamFrame is the SSE data payload for the chat stream. Frames carry the
// cumulative text so far, not deltas: a client can always render the latest
// frame and discard the rest.
type streamFrame struct {
	Text       string `json:"text"`
	IsComplete bool   `json:"isComplete"`
	Error      bool   `json:"error,omitempty"`
}

// streamEmitter writes the chat SSE stream: zero or more progress frames
// followed by exactly one terminal frame. Once a terminal frame is written the
// emitter refuses further output.
//
// Not safe for concurrent use; one emitter serves one request.
type streamEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	logger  log.Logger
	acc     strings.Builder
	done    bool
}

// newStreamEmitter sets SSE headers and prepares an emitter. Fails if the
// ResponseWriter does not support flushing.
func newStreamEmitter(w http.ResponseWriter, logger log.Logger) (*streamEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &streamEmitter{w: w, flusher: flusher, logger: logger}, nil
}

// Delta appends a text delta and emits a progress frame with the accumulated
// text. A write failure (usually a closed connection) is returned so the
// caller can abort the run.
func (e *streamEmitter) Delta(delta string) error {
	if e.done {
		return nil
	}
	e.acc.WriteString(delta)
	return e.writeFrame(streamFrame{Text: e.acc.String()})
}

// Complete emits the terminal success frame carrying the accumulated stream
// text, so the terminal frame never carries less than a frame before it.
// finalText is used only when it extends the accumulated text, which also
// covers runs that produced no deltas at all.
func (e *streamEmitter) Complete(finalText string) {
	if e.done {
		return
	}
	e.done = true

	text := e.acc.String()
	if finalText != text && strings.HasPrefix(finalText, text) {
		text = finalText
	}
	if err := e.writeFrame(streamFrame{Text: text, IsComplete: true}); err != nil {
		e.logger.Debug("failed to write completion frame", "error", err)
	}
}

// Fail emits the terminal error frame with the fixed apology text.
func (e *streamEmitter) Fail() {
	if e.done {
		return
	}
	e.done = true

	if err := e.writeFrame(streamFrame{Text: ApologyMessage, IsComplete: true, Error: true}); err != nil {
		e.logger.Debug("failed to write error frame", "error", err)
	}
}

func (e *streamEmitter) writeFrame(frame streamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.flusher.Flush()
	return nil
}
