package oauth2

import (
	"context"

	"github.com/dingo/oauth2-server/storage"
)

// ImplicitGrant implements the implicit flow (RFC 6749 section 4.2): the
// access token is minted directly while handling the authorization request,
// skipping the authorization code and the token endpoint entirely.
type ImplicitGrant struct {
	grantCore
}

// NewImplicitGrant creates the grant.
func NewImplicitGrant() *ImplicitGrant {
	return &ImplicitGrant{}
}

// GrantIdentifier returns "implicit".
func (g *ImplicitGrant) GrantIdentifier() string {
	return "implicit"
}

// ResponseType returns "token".
func (g *ImplicitGrant) ResponseType() string {
	return "token"
}

// ValidateAuthorizationRequest validates the authorize endpoint parameters,
// the client and the requested scopes.
func (g *ImplicitGrant) ValidateAuthorizationRequest(ctx context.Context, r *Request) (*AuthorizationRequest, error) {
	return g.validateAuthorizationRequest(ctx, r)
}

// HandleAuthorizationRequest mints an access token bound to the client,
// resource owner and approved scopes.
func (g *ImplicitGrant) HandleAuthorizationRequest(ctx context.Context, clientID, userID, redirectURI string, scopes map[string]storage.Scope) (any, error) {
	return g.createToken(ctx, storage.TokenAccess, clientID, userID, scopes)
}

// Execute is a no-op: the implicit flow only ever issues tokens through
// HandleAuthorizationRequest, since it skips the token endpoint round trip.
// The Authorization server rejects a grant_type of "implicit" when Execute
// returns no token.
func (g *ImplicitGrant) Execute(ctx context.Context, r *Request) (*storage.Token, error) {
	return nil, nil
}
