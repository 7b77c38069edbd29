package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix marks a configuration value as a secret reference.
const RefPrefix = "secretref:"

// inlineRefPattern matches secret references embedded in larger values,
// e.g. "x-honeycomb-team=secretref:env:HONEYCOMB_API_KEY".
var inlineRefPattern = regexp.MustCompile(`secretref:([A-Za-z0-9_-]+):([^\s,;]+)`)

// Resolver resolves secret references and environment expansions in
// configuration values.
//
// Contract:
// - Concurrency: safe for concurrent use after construction.
// - Errors: unresolvable references and missing environment variables error;
//   values without references pass through unchanged.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a Resolver backed by the given providers. Later
// providers with the same name replace earlier ones.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// ParseSecretRef splits a full "secretref:provider:ref" value. It returns
// ok=false when value is not a secret reference.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// ResolveValue expands environment variables in value and resolves any
// secret references, full or inline.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	if provider, ref, ok := ParseSecretRef(expanded); ok && inlineRefPattern.FindString(expanded) == expanded {
		return r.resolve(ctx, provider, ref)
	}

	var resolveErr error
	resolved := inlineRefPattern.ReplaceAllStringFunc(expanded, func(match string) string {
		sub := inlineRefPattern.FindStringSubmatch(match)
		secretValue, err := r.resolve(ctx, sub[1], sub[2])
		if err != nil {
			if resolveErr == nil {
				resolveErr = err
			}
			return match
		}
		return secretValue
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return resolved, nil
}

// ResolveMap resolves every value of m, returning a new map. The first
// resolution failure aborts with its error.
func (r *Resolver) ResolveMap(ctx context.Context, m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return m, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, provider, ref string) (string, error) {
	p, ok := r.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown secret provider %q", provider)
	}
	value, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("provider %q: %w", provider, err)
	}
	return value, nil
}
