package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dingo/oauth2-server/storage"
)

// Grant encapsulates the validation and token issuance logic of one RFC
// 6749 flow. Grants are stateless with respect to requests: every
// per-request value travels through Execute's arguments, so a single grant
// instance is safe to share across concurrent requests.
type Grant interface {
	// GrantIdentifier returns the wire value of the grant_type parameter
	// this grant handles.
	GrantIdentifier() string

	// Execute runs the flow against the given request and returns the
	// issued access token. Validation failures return a *Error; no partial
	// token is ever persisted on failure.
	Execute(ctx context.Context, r *Request) (*storage.Token, error)
}

// ResponseTypeGrant is implemented by grants that also participate in the
// authorize endpoint (authorization code and implicit).
type ResponseTypeGrant interface {
	Grant

	// ResponseType returns the wire value of the response_type parameter
	// this grant handles.
	ResponseType() string

	// ValidateAuthorizationRequest checks the required parameters, the
	// client (non-strictly, so public clients are allowed) and the
	// requested scopes, returning a bag of values for the consent layer to
	// act on before invoking HandleAuthorizationRequest.
	ValidateAuthorizationRequest(ctx context.Context, r *Request) (*AuthorizationRequest, error)

	// HandleAuthorizationRequest completes an approved authorization
	// request, returning either a *storage.AuthorizationCode or a
	// *storage.Token depending on the flow.
	HandleAuthorizationRequest(ctx context.Context, clientID, userID, redirectURI string, scopes map[string]storage.Scope) (any, error)
}

// AuthorizationRequest is the validated parameter bag of an authorize
// endpoint request, handed to the consent layer.
type AuthorizationRequest struct {
	ClientID    string
	UserID      string
	RedirectURI string
	State       string
	Scopes      map[string]storage.Scope
	Client      *storage.Client
}

// grantDependencies carries the collaborators the Authorization server
// wires into each grant at registration time.
type grantDependencies struct {
	storage         *storage.Adapter
	scopes          *ScopeValidator
	generator       TokenGenerator
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// grantCore holds the collaborators and helpers shared by every grant.
// Concrete grants embed it; Authorization.RegisterGrant binds it.
type grantCore struct {
	deps grantDependencies
}

func (g *grantCore) bind(deps grantDependencies) {
	g.deps = deps
}

func (g *grantCore) now() time.Time {
	if g.deps.now != nil {
		return g.deps.now()
	}
	return time.Now()
}

// validateClient resolves the client credentials from HTTP Basic
// authentication, falling back per field to the client_id and client_secret
// body parameters, and looks the client up together with any redirect_uri
// the request carries. Strict validation requires both an ID and a secret
// before the lookup is even attempted, which rejects public clients.
func (g *grantCore) validateClient(ctx context.Context, r *Request, strict bool) (*storage.Client, error) {
	redirectURI := r.Param("redirect_uri")

	id, secret, _ := r.BasicAuth()
	if id == "" {
		id = r.Param("client_id")
	}
	if secret == "" {
		secret = r.Param("client_secret")
	}

	if strict && (id == "" || secret == "") {
		return nil, ErrClientAuthenticationFailed()
	}
	if id == "" {
		return nil, ErrClientAuthenticationFailed()
	}

	clients, err := g.deps.storage.Client()
	if err != nil {
		return nil, err
	}

	client, err := clients.Get(ctx, id, secret, redirectURI)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrClientAuthenticationFailed()
		}
		return nil, fmt.Errorf("oauth2: fetching client %q: %w", id, err)
	}

	return client, nil
}

// strictlyValidateClient validates the client requiring both an ID and a
// secret. Used by flows that demand confidential-client authentication.
func (g *grantCore) strictlyValidateClient(ctx context.Context, r *Request) (*storage.Client, error) {
	return g.validateClient(ctx, r, true)
}

// validateScopes delegates to the wired scope validator.
func (g *grantCore) validateScopes(ctx context.Context, r *Request, original map[string]storage.Scope) (map[string]storage.Scope, error) {
	return g.deps.scopes.Validate(ctx, r, original)
}

// validateRequestParameters requires a non-empty value for each named
// parameter, failing on the first missing one, and returns the values in
// order.
func (g *grantCore) validateRequestParameters(r *Request, parameters ...string) ([]string, error) {
	values := make([]string, 0, len(parameters))

	for _, parameter := range parameters {
		value := r.Param(parameter)
		if value == "" {
			return nil, ErrMissingParameter(parameter)
		}
		values = append(values, value)
	}

	return values, nil
}

// createToken generates a token string, persists it with an absolute expiry
// derived from the type's configured lifetime, and associates any scopes
// both in storage and on the returned entity. Issuance is always the last
// step of a flow, so a failed validation never leaves a partial token.
func (g *grantCore) createToken(ctx context.Context, typ storage.TokenType, clientID, userID string, scopes map[string]storage.Scope) (*storage.Token, error) {
	value, err := g.deps.generator.Generate()
	if err != nil {
		return nil, err
	}

	ttl := g.deps.accessTokenTTL
	if typ == storage.TokenRefresh {
		ttl = g.deps.refreshTokenTTL
	}
	expires := g.now().Add(ttl)

	tokens, err := g.deps.storage.Token()
	if err != nil {
		return nil, err
	}

	token, err := tokens.Create(ctx, value, typ, clientID, userID, expires)
	if err != nil {
		return nil, fmt.Errorf("oauth2: creating %s token: %w", typ, err)
	}

	if len(scopes) > 0 {
		if err := tokens.AssociateScopes(ctx, token.Token, scopes); err != nil {
			return nil, fmt.Errorf("oauth2: associating scopes with %s token: %w", typ, err)
		}
		token.AttachScopes(scopes)
	}

	return token, nil
}

// validateAuthorizationRequest implements the shared authorize endpoint
// validation for response type grants.
func (g *grantCore) validateAuthorizationRequest(ctx context.Context, r *Request) (*AuthorizationRequest, error) {
	if _, err := g.validateRequestParameters(r, "response_type", "client_id"); err != nil {
		return nil, err
	}

	client, err := g.validateClient(ctx, r, false)
	if err != nil {
		return nil, err
	}

	scopes, err := g.validateScopes(ctx, r, nil)
	if err != nil {
		return nil, err
	}

	return &AuthorizationRequest{
		ClientID:    r.Param("client_id"),
		UserID:      r.Param("user_id"),
		RedirectURI: r.Param("redirect_uri"),
		State:       r.Param("state"),
		Scopes:      scopes,
		Client:      client,
	}, nil
}
