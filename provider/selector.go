package provider

import (
	"context"
	"errors"
)

// ErrNoneAvailable is returned when a selector finds no available provider.
var ErrNoneAvailable = errors.New("no available provider")

// Selector picks a provider from the available options.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order.
// Providers missing from Priority are never selected.
type PrioritySelector[T Provider] struct {
	Priority []string
}

// Select returns the first available provider in priority order.
func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoneAvailable
}

// PreferredSelector tries Preferred first and falls back to Fallback.
type PreferredSelector[T Provider] struct {
	Preferred string
	Fallback  Selector[T]
}

// Select returns the preferred provider if present and available.
func (s *PreferredSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	if s.Preferred != "" {
		if p, ok := providers[s.Preferred]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	if s.Fallback == nil {
		var zero T
		return zero, ErrNoneAvailable
	}
	return s.Fallback.Select(ctx, providers)
}
