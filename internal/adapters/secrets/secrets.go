// Package secrets resolves named secret values for webhook auth and
// upstream credentials. Backends stay behind the Resolver port so the
// core never knows where a secret came from
package secrets

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	perr "shipledger/internal/platform/errors"
)

// Resolver yields the secret value for a name
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Env resolves secrets from environment variables
// Secret-manager backends hand back JSON envelopes, so values that look
// like one are unwrapped the same way
type Env struct{}

// Resolve returns the value for name, unwrapping JSON envelopes
// Missing names resolve to empty with no error so deployments can opt
// out of webhook auth by leaving the secret unset
func (Env) Resolve(_ context.Context, name string) (string, error) {
	return Unwrap(os.Getenv(name)), nil
}

// Static resolves from a fixed map, used by tests and local runs
type Static map[string]string

// Resolve returns the mapped value, unwrapping JSON envelopes
func (s Static) Resolve(_ context.Context, name string) (string, error) {
	return Unwrap(s[name]), nil
}

// Unwrap extracts the secret from a JSON envelope when the value is one
// Recognized keys in order: token, secret, value. Non-JSON values and
// envelopes missing all keys pass through untouched
func Unwrap(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "{") {
		return v
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(v), &env); err != nil {
		return v
	}
	for _, k := range []string{"token", "secret", "value"} {
		raw, ok := env[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return v
}

// MustResolve is sugar for boot paths where a secret is required
func MustResolve(ctx context.Context, r Resolver, name string) (string, error) {
	v, err := r.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", perr.NotFoundf("secret %s not set", name)
	}
	return v, nil
}
