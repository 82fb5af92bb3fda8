package storage

import "time"

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Client is a registered OAuth client.
//
// A client is confidential when it holds a non-empty secret; grants that
// require strict authentication reject clients without one.
type Client struct {
	ID          string
	Secret      string
	Name        string
	RedirectURI string // matched or default redirection URI, empty if none registered
	Trusted     bool
}

// IsTrusted reports whether the client is flagged trusted. Integrators
// typically skip the consent prompt for trusted clients.
func (c *Client) IsTrusted() bool {
	return c.Trusted
}

// RedirectURI is a redirection endpoint registered for a client. At most one
// should be flagged default per client.
type RedirectURI struct {
	URI     string
	Default bool
}

// Scope is a named permission unit a token can be restricted to. Immutable
// once fetched; treat as a value.
type Scope struct {
	Scope       string
	Name        string
	Description string
}

// Token is an issued access or refresh token. UserID is empty for tokens
// issued by the client credentials grant. Expires is always an absolute
// point in time.
type Token struct {
	Token    string
	Type     TokenType
	ClientID string
	UserID   string
	Expires  time.Time
	Scopes   map[string]Scope
}

// AttachScopes sets the token's scope associations after construction.
func (t *Token) AttachScopes(scopes map[string]Scope) {
	t.Scopes = scopes
}

// HasScope reports whether the token carries the given scope.
func (t *Token) HasScope(scope string) bool {
	_, ok := t.Scopes[scope]
	return ok
}

// AuthorizationCode is a short-lived credential exchanged for an access
// token. Codes are single use: deleted from storage immediately upon
// successful exchange.
type AuthorizationCode struct {
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Expires     time.Time
	Scopes      map[string]Scope
}

// AttachScopes sets the code's scope associations after construction.
func (c *AuthorizationCode) AttachScopes(scopes map[string]Scope) {
	c.Scopes = scopes
}

// HasScope reports whether the code carries the given scope.
func (c *AuthorizationCode) HasScope(scope string) bool {
	_, ok := c.Scopes[scope]
	return ok
}
