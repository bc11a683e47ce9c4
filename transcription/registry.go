package transcription

import (
	"context"
	"errors"
	"sort"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/provider"
)

// Registry holds the backends and selects one per request. It is read-only
// after construction apart from Register.
type Registry struct {
	backends *provider.Registry[Backend]
}

// NewRegistry creates a registry holding backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: provider.NewRegistry[Backend]()}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds or replaces a backend under its descriptor ID.
func (r *Registry) Register(b Backend) {
	r.backends.Set(b.Descriptor().ID, b)
}

// Get returns a backend by ID.
func (r *Registry) Get(id string) (Backend, bool) {
	return r.backends.Get(id)
}

// Descriptors returns all descriptors in priority order.
func (r *Registry) Descriptors() []Descriptor {
	all := r.backends.Instances()
	out := make([]Descriptor, 0, len(all))
	for _, b := range all {
		out = append(out, b.Descriptor())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Priority returns backend IDs, most reliable first.
func (r *Registry) Priority() []string {
	descs := r.Descriptors()
	ids := make([]string, len(descs))
	for i, d := range descs {
		ids[i] = d.ID
	}
	return ids
}

// Select returns the preferred backend when it exists and is configured,
// otherwise the first configured backend in priority order.
func (r *Registry) Select(ctx context.Context, preferred string) (Backend, error) {
	sel := &provider.PreferredSelector[Backend]{
		Preferred: preferred,
		Fallback:  &provider.PrioritySelector[Backend]{Priority: r.Priority()},
	}
	b, err := sel.Select(ctx, r.backends.Instances())
	if errors.Is(err, provider.ErrNoneAvailable) {
		return nil, goerrors.NoBackendConfigured()
	}
	return b, err
}
