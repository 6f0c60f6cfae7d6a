package registry

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// CredentialSource looks up a credential by its variable name. A blank value
// counts as absent.
type CredentialSource interface {
	Lookup(key string) (string, bool)
}

// EnvSource reads credentials from the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return nonBlank(os.LookupEnv(key))
}

// MapSource serves credentials from a fixed map. Handy in tests.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	value, ok := m[key]
	return nonBlank(value, ok)
}

// DotenvSource re-reads a dotenv file on every lookup. A missing or
// unreadable file yields no credentials.
type DotenvSource struct {
	Path string
}

func (d DotenvSource) Lookup(key string) (string, bool) {
	values, err := godotenv.Read(d.Path)
	if err != nil {
		return "", false
	}
	value, ok := values[key]
	return nonBlank(value, ok)
}

// ChainSource returns the first non-blank value found in its sources.
type ChainSource []CredentialSource

func (c ChainSource) Lookup(key string) (string, bool) {
	for _, source := range c {
		if value, ok := source.Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

func nonBlank(value string, ok bool) (string, bool) {
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
