package oauth2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

// authorizationCodeTTL is the lifetime of issued authorization codes.
// Deliberately not configurable.
const authorizationCodeTTL = 10 * time.Minute

// ConsentNotifier is told whenever an authorization code is issued, along
// with the client it was issued to. Integrators use it to skip re-prompting
// a resource owner who has authorized the client in the past.
type ConsentNotifier interface {
	CodeIssued(ctx context.Context, code *storage.AuthorizationCode, client *storage.Client)
}

// AuthorizationCodeGrant implements the authorization code flow (RFC 6749
// section 4.1): a two-phase exchange where the authorize endpoint mints a
// short-lived single-use code and the token endpoint later exchanges it for
// an access token.
type AuthorizationCodeGrant struct {
	grantCore

	notifier ConsentNotifier
}

// NewAuthorizationCodeGrant creates the grant. The notifier may be nil.
func NewAuthorizationCodeGrant(notifier ConsentNotifier) *AuthorizationCodeGrant {
	return &AuthorizationCodeGrant{notifier: notifier}
}

// GrantIdentifier returns "authorization_code".
func (g *AuthorizationCodeGrant) GrantIdentifier() string {
	return "authorization_code"
}

// ResponseType returns "code".
func (g *AuthorizationCodeGrant) ResponseType() string {
	return "code"
}

// ValidateAuthorizationRequest validates the authorize endpoint parameters,
// the client and the requested scopes.
func (g *AuthorizationCodeGrant) ValidateAuthorizationRequest(ctx context.Context, r *Request) (*AuthorizationRequest, error) {
	return g.validateAuthorizationRequest(ctx, r)
}

// HandleAuthorizationRequest mints a ten-minute authorization code bound to
// the client, resource owner, redirection URI and approved scopes, then
// notifies the consent notifier if one is registered.
func (g *AuthorizationCodeGrant) HandleAuthorizationRequest(ctx context.Context, clientID, userID, redirectURI string, scopes map[string]storage.Scope) (any, error) {
	value, err := g.deps.generator.Generate()
	if err != nil {
		return nil, err
	}

	codes, err := g.deps.storage.AuthorizationCode()
	if err != nil {
		return nil, err
	}

	expires := g.now().Add(authorizationCodeTTL)

	code, err := codes.Create(ctx, value, clientID, userID, redirectURI, expires)
	if err != nil {
		return nil, fmt.Errorf("oauth2: creating authorization code: %w", err)
	}

	if len(scopes) > 0 {
		if err := codes.AssociateScopes(ctx, code.Code, scopes); err != nil {
			return nil, fmt.Errorf("oauth2: associating scopes with authorization code: %w", err)
		}
		code.AttachScopes(scopes)
	}

	if g.notifier != nil {
		// Hand the notifier a freshly loaded client so it sees the client's
		// registered metadata rather than the request's view of it.
		clients, err := g.deps.storage.Client()
		if err != nil {
			return nil, err
		}
		client, err := clients.Get(ctx, clientID, "", "")
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("oauth2: fetching client %q: %w", clientID, err)
		}
		if client != nil {
			g.notifier.CodeIssued(ctx, code, client)
		}
	}

	return code, nil
}

// Execute exchanges an authorization code for an access token. The code
// must belong to the strictly authenticated client, its redirection URI
// must be matched when it carries one, and it must not have expired. The
// code is deleted on success: codes are single use.
func (g *AuthorizationCodeGrant) Execute(ctx context.Context, r *Request) (*storage.Token, error) {
	if _, err := g.validateRequestParameters(r, "code"); err != nil {
		return nil, err
	}

	codes, err := g.deps.storage.AuthorizationCode()
	if err != nil {
		return nil, err
	}

	code, err := codes.Get(ctx, r.Param("code"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownAuthorizationCode()
		}
		return nil, fmt.Errorf("oauth2: fetching authorization code: %w", err)
	}

	client, err := g.strictlyValidateClient(ctx, r)
	if err != nil {
		return nil, err
	}

	if code.ClientID != client.ID {
		return nil, ErrMismatchedClient("The authorization code is not associated with the client.")
	}

	// The redirection URI is only enforced when the code was issued with
	// one; the exchange must then repeat it exactly.
	if code.RedirectURI != "" {
		if redirectURI := r.Param("redirect_uri"); redirectURI == "" || redirectURI != code.RedirectURI {
			return nil, ErrMismatchedRedirectionURI()
		}
	}

	if code.Expires.Before(g.now()) {
		return nil, ErrExpiredAuthorizationCode()
	}

	token, err := g.createToken(ctx, storage.TokenAccess, client.ID, code.UserID, code.Scopes)
	if err != nil {
		return nil, err
	}

	// The code has served its purpose; delete it so a second exchange of
	// the same code fails as unknown.
	if err := codes.Delete(ctx, code.Code); err != nil {
		return nil, fmt.Errorf("oauth2: deleting authorization code: %w", err)
	}

	return token, nil
}
