// Package transcription holds the domain types of the pipeline and the
// contract every transcription backend implements.
//
// Backends are variants of one interface rather than a hierarchy: each
// subpackage (assemblyai, deepgram, openai, gemini) speaks its own wire
// protocol and normalizes the reply into a CallResult. Registry picks the
// backend for a request:
//
//	reg := transcription.NewRegistry(assemblyaiBackend, geminiBackend)
//	b, err := reg.Select(ctx, opts.Backend)
//	res, err := b.Dispatch(ctx, path, opts)
package transcription
