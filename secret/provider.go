package secret

import (
	"context"
	"fmt"
	"os"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// envProvider resolves references against the process environment.
type envProvider struct{}

// EnvProvider resolves "secretref:env:NAME" references from the process
// environment.
func EnvProvider() Provider {
	return envProvider{}
}

func (envProvider) Name() string { return "env" }

func (envProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref)
	}
	return value, nil
}

// staticProvider resolves references from a fixed map, mainly for tests
// and embedded credentials injected at startup.
type staticProvider struct {
	name   string
	values map[string]string
}

// StaticProvider resolves references from the given map.
func StaticProvider(name string, values map[string]string) Provider {
	return &staticProvider{name: name, values: values}
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := p.values[ref]
	if !ok {
		return "", fmt.Errorf("secret %q not found in provider %q", ref, p.name)
	}
	return value, nil
}
