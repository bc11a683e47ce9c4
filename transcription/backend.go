package transcription

import (
	"context"

	"github.com/kbukum/meetscribe/provider"
)

// Backend is a transcription service. IsAvailable reports whether its
// credentials are configured.
type Backend interface {
	provider.Provider
	Descriptor() Descriptor
	// Dispatch transcribes the file at path. Errors are taxonomy AppErrors.
	Dispatch(ctx context.Context, path string, opts Options) (*CallResult, error)
}

// DurationProber measures audio length for backends whose reply omits it.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}
