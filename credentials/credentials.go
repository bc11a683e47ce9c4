// Package credentials resolves API keys for backends and language models.
//
// The pipeline never reads secrets itself; it asks a Provider by name.
// Env reads the conventional environment variables, Static serves a fixed
// map, Vault keeps keys in a passphrase-encrypted file, and Chain consults
// several providers in order.
package credentials

import (
	"os"
	"strings"
)

// Well-known credential names.
const (
	AssemblyAI = "assemblyai"
	Deepgram   = "deepgram"
	OpenAI     = "openai"
	Gemini     = "gemini"
)

// Provider looks up a credential by name.
type Provider interface {
	Lookup(name string) (string, bool)
}

// Static serves credentials from a map. Empty values count as missing.
type Static map[string]string

// Lookup implements Provider.
func (s Static) Lookup(name string) (string, bool) {
	v := strings.TrimSpace(s[name])
	return v, v != ""
}

// Env reads <NAME>_API_KEY from the environment, e.g. DEEPGRAM_API_KEY.
type Env struct {
	// Prefix is prepended to the variable name, e.g. "MEETSCRIBE_".
	Prefix string
}

// Lookup implements Provider.
func (e Env) Lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(e.Variable(name)))
	return v, v != ""
}

// Variable returns the environment variable consulted for name.
func (e Env) Variable(name string) string {
	return e.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
}

// Chain returns the first credential found.
type Chain []Provider

// Lookup implements Provider.
func (c Chain) Lookup(name string) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v, ok := p.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Get returns the credential for name, or "" when missing.
func Get(p Provider, name string) string {
	if p == nil {
		return ""
	}
	v, _ := p.Lookup(name)
	return v
}
