package oauth2

import (
	"context"

	"github.com/dingo/oauth2-server/storage"
)

// ClientCredentialsGrant implements the client credentials flow (RFC 6749
// section 4.4): a confidential client trades its own credentials for an
// access token with no resource owner involved.
type ClientCredentialsGrant struct {
	grantCore
}

// NewClientCredentialsGrant creates the grant.
func NewClientCredentialsGrant() *ClientCredentialsGrant {
	return &ClientCredentialsGrant{}
}

// GrantIdentifier returns "client_credentials".
func (g *ClientCredentialsGrant) GrantIdentifier() string {
	return "client_credentials"
}

// Execute validates the client strictly, validates the requested scopes and
// issues an access token with no associated user.
func (g *ClientCredentialsGrant) Execute(ctx context.Context, r *Request) (*storage.Token, error) {
	client, err := g.strictlyValidateClient(ctx, r)
	if err != nil {
		return nil, err
	}

	scopes, err := g.validateScopes(ctx, r, nil)
	if err != nil {
		return nil, err
	}

	return g.createToken(ctx, storage.TokenAccess, client.ID, "", scopes)
}
