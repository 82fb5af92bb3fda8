package oauth2

import (
	"context"
	"errors"
	"fmt"

	"github.com/dingo/oauth2-server/storage"
)

// RefreshTokenGrant implements token refreshing (RFC 6749 section 6). The
// presented refresh token is rotated: the old refresh token is revoked and a
// fresh access/refresh pair bound to the same user is issued. The new token
// pair may carry a narrower scope set than the original but never a wider
// one.
type RefreshTokenGrant struct {
	grantCore
}

// NewRefreshTokenGrant creates the grant.
func NewRefreshTokenGrant() *RefreshTokenGrant {
	return &RefreshTokenGrant{}
}

// GrantIdentifier returns "refresh_token".
func (g *RefreshTokenGrant) GrantIdentifier() string {
	return "refresh_token"
}

// Execute rotates a refresh token. The client must authenticate with both its
// identifier and secret and must be the client the refresh token was issued
// to.
func (g *RefreshTokenGrant) Execute(ctx context.Context, r *Request) (*storage.Token, error) {
	params, err := g.validateRequestParameters(r, "refresh_token")
	if err != nil {
		return nil, err
	}
	refreshToken := params[0]

	client, err := g.strictlyValidateClient(ctx, r)
	if err != nil {
		return nil, err
	}

	tokens, err := g.deps.storage.Token()
	if err != nil {
		return nil, err
	}

	old, err := tokens.GetWithScopes(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownRefreshToken()
		}
		return nil, fmt.Errorf("oauth2: fetching refresh token: %w", err)
	}
	if old.Type != storage.TokenRefresh {
		return nil, ErrUnknownRefreshToken()
	}
	if old.ClientID != client.ID {
		return nil, ErrMismatchedClient("The refresh token is not associated with the authenticated client.")
	}

	scopes, err := g.validateScopes(ctx, r, old.Scopes)
	if err != nil {
		return nil, err
	}

	// Revoke before reissuing so a replayed refresh token cannot mint a
	// second pair.
	if err := tokens.Delete(ctx, old.Token); err != nil {
		return nil, fmt.Errorf("oauth2: revoking refresh token: %w", err)
	}

	access, err := g.createToken(ctx, storage.TokenAccess, client.ID, old.UserID, scopes)
	if err != nil {
		return nil, err
	}
	if _, err := g.createToken(ctx, storage.TokenRefresh, client.ID, old.UserID, scopes); err != nil {
		return nil, err
	}

	return access, nil
}
