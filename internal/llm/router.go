package llm

import (
	"context"
	"log/slog"
	"strings"
)

// Router picks a provider by model name prefix. Unmatched names, including
// the empty name, go to the fallback with the default model.
type Router struct {
	fallback     Generator
	defaultModel string
	routes       []route
}

type route struct {
	prefix string
	gen    Generator
}

// NewRouter creates a router that sends unmatched models to fallback.
func NewRouter(fallback Generator, defaultModel string) *Router {
	return &Router{fallback: fallback, defaultModel: defaultModel}
}

// Handle routes model names starting with prefix to g. Longer prefixes win.
func (r *Router) Handle(prefix string, g Generator) {
	r.routes = append(r.routes, route{prefix: strings.ToLower(prefix), gen: g})
}

// Generate dispatches req to the provider for req.Model.
func (r *Router) Generate(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		req.Model = r.defaultModel
	}
	g := r.pick(req.Model)
	slog.Debug("routing LLM call", "model", req.Model)
	return g.Generate(ctx, req)
}

func (r *Router) pick(modelName string) Generator {
	name := strings.ToLower(modelName)
	best, bestLen := r.fallback, -1
	for _, rt := range r.routes {
		if strings.HasPrefix(name, rt.prefix) && len(rt.prefix) > bestLen {
			best, bestLen = rt.gen, len(rt.prefix)
		}
	}
	return best
}
