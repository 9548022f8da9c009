package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Registry tracks the tools available to the agent, keyed by name.
//
// Registration happens once during startup, before any request is served, so
// lookups need no locking. Insertion order is preserved: the order tools are
// registered is the order they are advertised to the model.
type Registry struct {
	byName map[string]ai.Tool
	order  []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]ai.Tool)}
}

// Register adds a tool under its own name. Registering two tools with the
// same name is a startup bug and returns an error.
func (r *Registry) Register(tool ai.Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name, or false if there is none.
func (r *Registry) Get(name string) (ai.Tool, bool) {
	tool, ok := r.byName[name]
	return tool, ok
}

// Refs returns all registered tools as model-facing references, in
// registration order.
func (r *Registry) Refs() []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(r.order))
	for _, name := range r.order {
		refs = append(refs, r.byName[name])
	}
	return refs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.order)
}
