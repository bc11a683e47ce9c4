// Package llm is a language-model client built on the REST client.
//
// A Dialect maps the universal CompletionRequest and CompletionResponse types
// to one provider's wire format, the way a database/sql driver maps queries.
// Adapter pairs a Dialect with a configured REST client and prices each call:
//
//	adapter, err := llm.New(gemini.Dialect{}, llm.Config{
//	    Name:    "gemini-flash",
//	    BaseURL: "https://generativelanguage.googleapis.com",
//	    Model:   "gemini-2.5-flash",
//	    APIKey:  key,
//	    Pricing: llm.Pricing{InputPerMillion: 0.30, OutputPerMillion: 2.50},
//	})
//	resp, err := adapter.Execute(ctx, llm.CompletionRequest{...})
//	// resp.CostCents is rounded up to whole cents.
//
// Adapter is a provider.RequestResponse, so middleware such as call logging
// and resilience wrap it transparently. CompleteStructured and ExtractJSON
// handle models that wrap JSON in markdown fences.
package llm
