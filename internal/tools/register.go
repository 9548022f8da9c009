package tools

import (
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool name constants. These are what the model asks for by name, so they are
// part of the prompt contract and must stay stable.
const (
	ToolSearchWeb     = "searchWeb"
	ToolEnrichProfile = "enrichProfile"
	ToolCurrentDate   = "currentDate"
)

// RegisterAll defines all agent tools with Genkit and records them in the
// registry. The Genkit closures are thin adapters; the business logic lives in
// Search and Enricher so it stays testable without a Genkit instance.
func RegisterAll(g *genkit.Genkit, reg *Registry, search *Search, enricher *Enricher) error {
	if g == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if reg == nil {
		return fmt.Errorf("registry is required")
	}
	if search == nil {
		return fmt.Errorf("search is required")
	}
	if enricher == nil {
		return fmt.Errorf("enricher is required")
	}

	searchTool := genkit.DefineTool(g, ToolSearchWeb,
		"Search the web for current information. Use this for questions about recent events, facts you are unsure about, or anything that may have changed since your training.",
		func(ctx *ai.ToolContext, input SearchInput) (SearchOutput, error) {
			results, err := search.Run(ctx.Context, input.Query)
			if err != nil {
				return SearchOutput{}, err
			}
			return SearchOutput{Results: results}, nil
		})

	enrichTool := genkit.DefineTool(g, ToolEnrichProfile,
		"Look up a person's LinkedIn profile and return enriched professional data (role, company, experience). Use this when asked about a specific person's background.",
		func(ctx *ai.ToolContext, input EnrichInput) (EnrichOutput, error) {
			profile, err := enricher.Run(ctx.Context, input.Query)
			if err != nil {
				return EnrichOutput{}, err
			}
			return EnrichOutput{Profile: profile}, nil
		})

	dateTool := genkit.DefineTool(g, ToolCurrentDate,
		"Get today's date. Use this whenever the answer depends on the current date.",
		func(ctx *ai.ToolContext, _ DateInput) (DateOutput, error) {
			return CurrentDate(time.Now), nil
		})

	for _, tool := range []ai.Tool{searchTool, enrichTool, dateTool} {
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("registering tools: %w", err)
		}
	}
	return nil
}
