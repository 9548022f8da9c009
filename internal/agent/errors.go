package agent

import "errors"

// Sentinel errors for agent failures. HTTP handlers use errors.Is() on these
// to choose a response status; tool failures keep their own typed error in the
// chain so the original classification survives wrapping.
var (
	// ErrEmptyMessage indicates the user message was empty or whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrInvalidHistory indicates a history entry has an unknown sender.
	ErrInvalidHistory = errors.New("invalid history entry")

	// ErrUnknownTool indicates the model requested a tool that is not
	// registered. This is a model or registration bug, not a user error.
	ErrUnknownTool = errors.New("unknown tool requested")

	// ErrModelFailed indicates the model call itself failed after retries.
	ErrModelFailed = errors.New("model call failed")

	// ErrToolFailed indicates a tool invocation failed. The underlying tool
	// error remains in the chain for classification.
	ErrToolFailed = errors.New("tool invocation failed")

	// ErrTurnLimit indicates the model kept requesting tools past the
	// configured turn limit.
	ErrTurnLimit = errors.New("tool-call turn limit exceeded")
)

// FallbackResponseMessage is returned when the model produces an empty final
// response. Callers always get non-empty text on success.
const FallbackResponseMessage = "I'm sorry, I couldn't generate a response. Please try again."
