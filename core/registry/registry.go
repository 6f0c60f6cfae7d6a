package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/plantcare/providers/ai"
)

const (
	// DefaultProviderName is used when a lookup name is unknown.
	DefaultProviderName = "primary"
	// DefaultVisionName is the provider recognition requests go to.
	DefaultVisionName = "vision"
)

// ErrNotConfigured matches the error Resolve returns when a known provider has
// no credential. It is the same kind as ai.ErrCredentialMissing.
var ErrNotConfigured = ai.ErrCredentialMissing

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrInvalidDescriptor = errors.New("invalid provider descriptor")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Descriptor holds the static dispatch parameters of one provider.
type Descriptor struct {
	LogicalName      string
	EndpointURL      string // API root or full chat completions URL
	CredentialEnvKey string
	WireModelName    string
	Vision           bool // accepts image content
}

// Registry resolves logical provider names.
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
	defaultName string
	visionName  string
	visionSet   bool
	source      CredentialSource
}

// Option configures a Registry.
type Option func(*Registry)

// WithCredentialSource replaces the default EnvSource.
func WithCredentialSource(source CredentialSource) Option {
	return func(r *Registry) {
		if source != nil {
			r.source = source
		}
	}
}

// WithDefault sets the fallback provider name.
func WithDefault(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.defaultName = name
		}
	}
}

// WithVision sets the provider used for image recognition.
func WithVision(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.visionName = name
			r.visionSet = true
		}
	}
}

// New builds a registry over descriptors. Names must be unique and non-empty,
// every descriptor needs an endpoint, and the default provider must exist, as
// must a provider named through WithVision. The first descriptor becomes the
// default when DefaultProviderName is absent and no WithDefault option is
// given.
func New(descriptors []Descriptor, opts ...Option) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: no providers", ErrInvalidDescriptor)
	}

	r := &Registry{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		source:      EnvSource{},
		visionName:  DefaultVisionName,
	}
	for _, descriptor := range descriptors {
		name := strings.TrimSpace(descriptor.LogicalName)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
		}
		if strings.TrimSpace(descriptor.EndpointURL) == "" {
			return nil, fmt.Errorf("%w: %q has no endpoint", ErrInvalidDescriptor, name)
		}
		if _, exists := r.descriptors[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
		}
		descriptor.LogicalName = name
		r.descriptors[name] = descriptor
		r.order = append(r.order, name)
	}

	if _, ok := r.descriptors[DefaultProviderName]; ok {
		r.defaultName = DefaultProviderName
	} else {
		r.defaultName = r.order[0]
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, ok := r.descriptors[r.defaultName]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownProvider, r.defaultName)
	}
	if _, ok := r.descriptors[r.visionName]; r.visionSet && !ok {
		return nil, fmt.Errorf("%w: vision %q", ErrUnknownProvider, r.visionName)
	}
	return r, nil
}

// Default returns the built-in table backed by the process environment.
func Default() *Registry {
	r, err := New(DefaultDescriptors())
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultDescriptors returns the built-in provider table.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			LogicalName:      "primary",
			EndpointURL:      "https://api.openai.com/v1",
			CredentialEnvKey: "OPENAI_API_KEY",
			WireModelName:    "gpt-4o-mini",
		},
		{
			LogicalName:      "secondary",
			EndpointURL:      "https://api.deepseek.com",
			CredentialEnvKey: "DEEPSEEK_API_KEY",
			WireModelName:    "deepseek-chat",
		},
		{
			LogicalName:      "vision",
			EndpointURL:      "https://api.openai.com/v1",
			CredentialEnvKey: "OPENAI_API_KEY",
			WireModelName:    "gpt-4o-mini",
			Vision:           true,
		},
	}
}

// Lookup returns the descriptor registered under name, without fallback.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	descriptor, ok := r.descriptors[name]
	return descriptor, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// DefaultName returns the fallback provider name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// VisionName returns the recognition provider name.
func (r *Registry) VisionName() string {
	return r.visionName
}

// Resolve maps name to a descriptor, falling back to the default provider for
// unknown names. When the descriptor's credential is absent it returns the
// descriptor together with a credential_missing *ai.Error, so callers can
// still name the variable to set.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	descriptor, ok := r.descriptors[name]
	if !ok {
		descriptor = r.descriptors[r.defaultName]
	}
	if _, err := r.Credential(descriptor); err != nil {
		return descriptor, err
	}
	return descriptor, nil
}

// ResolveVision resolves the recognition provider.
func (r *Registry) ResolveVision() (Descriptor, error) {
	return r.Resolve(r.visionName)
}

// Credential reads the descriptor's credential at call time.
func (r *Registry) Credential(descriptor Descriptor) (string, error) {
	if descriptor.CredentialEnvKey == "" {
		return "", ai.NewError(ai.KindCredentialMissing, descriptor.LogicalName, "no credential variable configured", nil)
	}
	value, ok := r.source.Lookup(descriptor.CredentialEnvKey)
	if !ok {
		return "", ai.NewError(ai.KindCredentialMissing, descriptor.LogicalName,
			descriptor.CredentialEnvKey+" is not set", nil)
	}
	return value, nil
}

// Configured reports whether the descriptor's credential is currently present.
func (r *Registry) Configured(descriptor Descriptor) bool {
	_, err := r.Credential(descriptor)
	return err == nil
}
