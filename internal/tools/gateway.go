package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler executes one tool invocation.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Spec describes a tool for prompts and for the lightweight validator.
type Spec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
}

// Gateway is the host-provided tool catalog. Workers only see the subset
// named in their registry entry.
type Gateway struct {
	mu       sync.RWMutex
	specs    map[string]Spec
	handlers map[string]Handler
}

func NewGateway() *Gateway {
	return &Gateway{
		specs:    make(map[string]Spec),
		handlers: make(map[string]Handler),
	}
}

func (g *Gateway) Register(spec Spec, h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.specs[spec.Name] = spec
	g.handlers[spec.Name] = h
}

func (g *Gateway) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	g.mu.RLock()
	h, ok := g.handlers[name]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, args)
}

func (g *Gateway) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.handlers[name]
	return ok
}

// Specs returns the specs for the named tools, skipping unknown names.
func (g *Gateway) Specs(names []string) []Spec {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Spec, 0, len(names))
	for _, n := range names {
		if s, ok := g.specs[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// PromptPart renders the named tools for a worker's generation prompt.
func (g *Gateway) PromptPart(names []string) string {
	specs := g.Specs(names)
	if len(specs) == 0 {
		return "AVAILABLE TOOLS: none\n"
	}
	var sb strings.Builder
	sb.WriteString("AVAILABLE TOOLS:\n")
	for _, s := range specs {
		sb.WriteString(fmt.Sprintf("- `%s`: %s Args require keys: `[%s]`.\n",
			s.Name, s.Description, strings.Join(s.Required, ", ")))
	}
	return sb.String()
}
