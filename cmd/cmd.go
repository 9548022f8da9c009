// Package cmd provides CLI commands for leadscout.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ask: One-shot question from the command line
//
// Signal handling and graceful shutdown are implemented for all commands via
// context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leadscout/leadscout/internal/log"
)

// Execute is the main entry point for the leadscout CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ask":
		return runAsk(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Leadscout - AI chat agent with web search and profile enrichment")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  leadscout serve [addr]    Start HTTP API server (default: 127.0.0.1:3500)")
	fmt.Println("  leadscout ask <question>  Ask a one-shot question")
	fmt.Println("  leadscout --version       Show version information")
	fmt.Println("  leadscout --help          Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key (or OPENAI_API_KEY with provider=openai)")
	fmt.Println("  TAVILY_API_KEY     Required: web search API key")
	fmt.Println("  SCRAPIN_API_KEY    Required: profile enrichment API key")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
