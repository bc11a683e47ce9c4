package provider

import "context"

// RequestResponse is a provider that takes one input and returns one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Func adapts a plain function into a RequestResponse provider.
type Func[I, O any] struct {
	name      string
	fn        func(ctx context.Context, input I) (O, error)
	available func(ctx context.Context) bool
}

// NewFunc creates a RequestResponse named name that calls fn.
func NewFunc[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) *Func[I, O] {
	return &Func[I, O]{name: name, fn: fn}
}

// WithAvailability sets the availability check. Without one the provider is
// always available.
func (f *Func[I, O]) WithAvailability(check func(ctx context.Context) bool) *Func[I, O] {
	f.available = check
	return f
}

func (f *Func[I, O]) Name() string { return f.name }

func (f *Func[I, O]) IsAvailable(ctx context.Context) bool {
	if f.available == nil {
		return true
	}
	return f.available(ctx)
}

func (f *Func[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}
