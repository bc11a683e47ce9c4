package llm

import "github.com/kbukum/meetscribe/httpclient"

// Dialect maps universal types to and from one provider's HTTP format.
type Dialect interface {
	// Name returns the dialect identifier, e.g. "openai".
	Name() string
	// ChatPath returns the completion endpoint for model.
	ChatPath(model string) string
	// Auth returns how apiKey is attached to requests.
	Auth(apiKey string) *httpclient.AuthConfig
	// BuildRequest maps a CompletionRequest to the provider's JSON body.
	BuildRequest(req CompletionRequest) (any, error)
	// ParseResponse maps the provider's JSON body to a CompletionResponse.
	ParseResponse(body []byte) (*CompletionResponse, error)
}
