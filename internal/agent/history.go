package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sender identifies who authored a chat history entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message is one prior turn of the conversation, supplied by the client with
// each request. The server keeps no session state.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// historyPreamble introduces the serialized history in the prompt. The exact
// wording is part of the prompt contract; changing it changes model behavior.
const historyPreamble = "The chat history is the following "

// BuildPrompt produces the single prompt string sent to the model: the new
// message followed by the serialized history. An empty history serializes as
// []. The same message and history always produce the same prompt.
func BuildPrompt(message string, history []Message) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	for i, m := range history {
		if !m.Sender.Valid() {
			return "", fmt.Errorf("%w: entry %d has sender %q", ErrInvalidHistory, i, m.Sender)
		}
	}

	if history == nil {
		history = []Message{}
	}
	serialized, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("serializing history: %w", err)
	}
	return message + historyPreamble + string(serialized), nil
}
