// Package validation validates inputs and renders failures as Validation
// AppErrors.
//
// Struct tags for request types:
//
//	type Options struct {
//	    Backend string `json:"backend" validate:"omitempty,oneof=gemini openai"`
//	}
//	err := validation.Validate(opts)
//
// A collector for hand-written checks, mostly in config Validate methods:
//
//	v := validation.New()
//	v.Required("endpoint", cfg.Endpoint).Min("timeout_ms", ms, 1)
//	return v.Validate()
package validation
