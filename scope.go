package oauth2

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dingo/oauth2-server/storage"
)

// DefaultScopeDelimiter separates scope identifiers in the "scope"
// request parameter.
const DefaultScopeDelimiter = " "

// ScopeValidator parses and validates the scopes requested on an inbound
// request against storage and, for refresh flows, against the scopes of a
// prior grant. It holds configuration only; a single validator is safe to
// share across concurrent requests.
type ScopeValidator struct {
	store        storage.ScopeStore
	delimiter    string
	defaultScope []string
	required     bool
}

// ScopeOption configures a ScopeValidator.
type ScopeOption func(*ScopeValidator)

// WithScopeDelimiter sets the delimiter used to split the scope parameter.
func WithScopeDelimiter(delimiter string) ScopeOption {
	return func(v *ScopeValidator) {
		if delimiter != "" {
			v.delimiter = delimiter
		}
	}
}

// WithDefaultScope sets the scopes substituted when a request carries none.
func WithDefaultScope(scopes ...string) ScopeOption {
	return func(v *ScopeValidator) {
		v.defaultScope = scopes
	}
}

// WithScopeRequired makes an empty requested scope set an error rather than
// an unrestricted grant.
func WithScopeRequired() ScopeOption {
	return func(v *ScopeValidator) {
		v.required = true
	}
}

// NewScopeValidator creates a validator reading scope entities from the
// given store.
func NewScopeValidator(store storage.ScopeStore, opts ...ScopeOption) *ScopeValidator {
	v := &ScopeValidator{
		store:     store,
		delimiter: DefaultScopeDelimiter,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Delimiter returns the configured scope delimiter.
func (v *ScopeValidator) Delimiter() string {
	return v.delimiter
}

// Validate resolves the scope parameter of the request into scope entities.
//
// When the request carries no scopes the configured default is substituted;
// failing that, the keys of original (the scopes of a prior grant, for
// refresh narrowing) are substituted. An empty result is an error only when
// the validator requires a scope. When original is non-empty every requested
// scope must appear in it, which prevents privilege escalation on refresh.
// Unknown scopes abort with no partial result.
func (v *ScopeValidator) Validate(ctx context.Context, r *Request, original map[string]storage.Scope) (map[string]storage.Scope, error) {
	requested := splitScopes(r.Param("scope"), v.delimiter)

	if len(requested) == 0 {
		switch {
		case len(v.defaultScope) > 0:
			requested = v.defaultScope
		case len(original) > 0:
			requested = make([]string, 0, len(original))
			for scope := range original {
				requested = append(requested, scope)
			}
		}
	}

	if len(requested) == 0 {
		if v.required {
			return nil, ErrMissingScope()
		}
		return map[string]storage.Scope{}, nil
	}

	if len(original) > 0 {
		for _, scope := range requested {
			if _, ok := original[scope]; !ok {
				return nil, ErrScopeNotGranted(scope)
			}
		}
	}

	scopes := make(map[string]storage.Scope, len(requested))
	for _, requestedScope := range requested {
		scope, err := v.store.Get(ctx, requestedScope)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrUnknownScope(requestedScope)
			}
			return nil, fmt.Errorf("oauth2: fetching scope %q: %w", requestedScope, err)
		}
		scopes[scope.Scope] = *scope
	}

	return scopes, nil
}

// splitScopes splits a raw scope parameter on the delimiter, trimming
// whitespace and dropping empty entries.
func splitScopes(raw, delimiter string) []string {
	if raw == "" {
		return nil
	}

	var scopes []string
	for _, scope := range strings.Split(raw, delimiter) {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}
