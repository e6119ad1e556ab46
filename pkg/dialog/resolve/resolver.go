package resolve

import (
	"context"
	"log"
)

// Resolver is the uniform per-field strategy contract: raw text in,
// canonical value plus scored candidates out. Implementations must treat
// ambiguity as a first-class outcome (empty Value, non-empty Candidates),
// not an error; errors are reserved for collaborator failures.
type Resolver interface {
	Resolve(ctx context.Context, text string) (Result, error)
}

// Registry maps field names to their resolvers.
type Registry struct {
	resolvers map[string]Resolver
	logger    *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		resolvers: map[string]Resolver{},
		logger:    logger,
	}
}

func (r *Registry) Register(field string, resolver Resolver) {
	r.resolvers[field] = resolver
}

// Resolve runs the field's strategy. Unknown fields and collaborator
// failures both produce an empty result: the turn engine asks again rather
// than aborting.
func (r *Registry) Resolve(ctx context.Context, field, text string) Result {
	resolver, ok := r.resolvers[field]
	if !ok {
		return Result{}
	}
	res, err := resolver.Resolve(ctx, text)
	if err != nil {
		r.logger.Printf("[RESOLVE] %s failed, treating as unresolved: %v", field, err)
		return Result{}
	}
	return res
}

// Fields returns the registered field names.
func (r *Registry) Fields() []string {
	out := make([]string, 0, len(r.resolvers))
	for f := range r.resolvers {
		out = append(out, f)
	}
	return out
}
