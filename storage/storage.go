package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations. Callers translate these
// into protocol-level errors; stores never shape wire responses themselves.
var (
	// ErrNotFound indicates the requested entity does not exist in storage.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnsupported indicates the backend does not provide the requested
	// store. Returned by Adapter accessors when the Factory has no
	// implementation for that capability.
	ErrUnsupported = errors.New("storage: store not supported")
)

// ClientStore manages registered OAuth clients.
// All methods accept context.Context for tracing and cancellation.
type ClientStore interface {
	// Get retrieves a client by ID, optionally constrained by secret and
	// redirection URI. When both secret and redirectURI are non-empty all
	// three must match; when only one is non-empty, the ID plus that field
	// must match; when both are empty the ID alone is matched. If the caller
	// supplied no redirectURI and the client has a default URI registered,
	// the returned entity carries the default so grant-level URI checks
	// behave the same across backends. Returns ErrNotFound when no client
	// matches.
	Get(ctx context.Context, id, secret, redirectURI string) (*Client, error)

	// Create registers a client with its redirection URIs. The URI flagged
	// default becomes the entity's RedirectURI.
	Create(ctx context.Context, id, secret, name string, redirectURIs []RedirectURI, trusted bool) (*Client, error)

	// Delete removes a client and its redirection URIs.
	Delete(ctx context.Context, id string) error
}

// TokenStore manages access and refresh tokens.
type TokenStore interface {
	// Create persists a token. Expires is an absolute point in time, never
	// a duration.
	Create(ctx context.Context, token string, typ TokenType, clientID, userID string, expires time.Time) (*Token, error)

	// Get retrieves a token without its scope associations.
	// Returns ErrNotFound when the token does not exist.
	Get(ctx context.Context, token string) (*Token, error)

	// GetWithScopes retrieves a token with its associated scopes attached.
	GetWithScopes(ctx context.Context, token string) (*Token, error)

	// AssociateScopes persists the scope associations for a token.
	AssociateScopes(ctx context.Context, token string, scopes map[string]Scope) error

	// Delete removes a token and its scope associations.
	Delete(ctx context.Context, token string) error
}

// AuthorizationCodeStore manages short-lived single-use authorization codes.
type AuthorizationCodeStore interface {
	// Create persists an authorization code bound to a client, resource
	// owner and redirection URI.
	Create(ctx context.Context, code, clientID, userID, redirectURI string, expires time.Time) (*AuthorizationCode, error)

	// Get retrieves a code with its associated scopes attached.
	// Returns ErrNotFound when the code does not exist.
	Get(ctx context.Context, code string) (*AuthorizationCode, error)

	// AssociateScopes persists the scope associations for a code.
	AssociateScopes(ctx context.Context, code string, scopes map[string]Scope) error

	// Delete removes a code and its scope associations.
	Delete(ctx context.Context, code string) error
}

// ScopeStore manages the scopes known to the authorization server.
type ScopeStore interface {
	// Get retrieves a scope by its identifier.
	// Returns ErrNotFound when the scope does not exist.
	Get(ctx context.Context, scope string) (*Scope, error)

	// Create registers a scope.
	Create(ctx context.Context, scope, name, description string) (*Scope, error)

	// Delete removes a scope.
	Delete(ctx context.Context, scope string) error
}
