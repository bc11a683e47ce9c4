// Package provider defines the contract shared by every external
// collaborator of the pipeline: transcription backends, language models and
// subprocess tools.
//
// A RequestResponse provider takes one input and returns one output.
// Middleware wraps it with cross-cutting behavior and Chain composes them:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("llm"),
//	)(raw)
//
// Registry holds named instances; PrioritySelector picks the
// first available instance from a fixed order.
package provider
