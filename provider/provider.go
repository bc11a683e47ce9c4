package provider

import "context"

// Provider is the base interface all providers implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable reports whether the provider can serve requests, typically
	// whether its credentials are configured.
	IsAvailable(ctx context.Context) bool
}
