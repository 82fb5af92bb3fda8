package oauth2

import (
	"context"

	"github.com/dingo/oauth2-server/storage"
)

// UserAuthenticator checks a resource owner's credentials for the password
// grant. On success it returns the user's identifier and true; on failure it
// returns false and the identifier is ignored.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, bool)
}

// UserAuthenticatorFunc adapts a function to the UserAuthenticator interface.
type UserAuthenticatorFunc func(ctx context.Context, username, password string) (string, bool)

// Authenticate calls f.
func (f UserAuthenticatorFunc) Authenticate(ctx context.Context, username, password string) (string, bool) {
	return f(ctx, username, password)
}

// PasswordGrant implements the resource owner password credentials flow
// (RFC 6749 section 4.3). User credentials are verified by the configured
// UserAuthenticator before the client is authenticated, so a bad password is
// reported even to a client that failed to authenticate.
type PasswordGrant struct {
	grantCore

	authenticator UserAuthenticator
}

// NewPasswordGrant creates the grant. The authenticator must not be nil.
func NewPasswordGrant(authenticator UserAuthenticator) *PasswordGrant {
	return &PasswordGrant{authenticator: authenticator}
}

// GrantIdentifier returns "password".
func (g *PasswordGrant) GrantIdentifier() string {
	return "password"
}

// Execute verifies the resource owner's credentials, authenticates the
// client and issues an access token bound to the user.
func (g *PasswordGrant) Execute(ctx context.Context, r *Request) (*storage.Token, error) {
	params, err := g.validateRequestParameters(r, "username", "password")
	if err != nil {
		return nil, err
	}
	username, password := params[0], params[1]

	userID, ok := g.authenticator.Authenticate(ctx, username, password)
	if !ok {
		return nil, ErrInvalidUserCredentials()
	}

	client, err := g.strictlyValidateClient(ctx, r)
	if err != nil {
		return nil, err
	}

	scopes, err := g.validateScopes(ctx, r, nil)
	if err != nil {
		return nil, err
	}

	return g.createToken(ctx, storage.TokenAccess, client.ID, userID, scopes)
}
