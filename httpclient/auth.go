package httpclient

import "net/http"

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Header names the header carrying Value. Ignored when Query is set.
	Header string
	// Query names a query parameter carrying Value.
	Query string
	Value string
}

// BearerAuth sends "Authorization: Bearer <token>".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Header: "Authorization", Value: "Bearer " + token}
}

// TokenAuth sends "Authorization: <scheme> <token>".
func TokenAuth(scheme, token string) *AuthConfig {
	return &AuthConfig{Header: "Authorization", Value: scheme + " " + token}
}

// APIKeyAuthHeader sends the key verbatim in the named header.
func APIKeyAuthHeader(key, headerName string) *AuthConfig {
	return &AuthConfig{Header: headerName, Value: key}
}

// APIKeyAuthQuery sends the key as a query parameter.
func APIKeyAuthQuery(key, paramName string) *AuthConfig {
	return &AuthConfig{Query: paramName, Value: key}
}

func (a *AuthConfig) apply(req *http.Request) {
	switch {
	case a == nil:
	case a.Query != "":
		q := req.URL.Query()
		q.Set(a.Query, a.Value)
		req.URL.RawQuery = q.Encode()
	case a.Header != "":
		req.Header.Set(a.Header, a.Value)
	}
}
