package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dingo/oauth2-server/instrumentation"
	"github.com/dingo/oauth2-server/security"
	"github.com/dingo/oauth2-server/storage"
)

// ErrNoRedirectURI indicates a redirect-based response could not be built
// because neither the request nor the client's registration carries a
// redirection URI. This is a deployment problem, not a client error.
var ErrNoRedirectURI = errors.New("oauth2: client has no registered redirection URI")

// Response is the shaped outcome of a token or authorization request. The
// transport layer serializes it as a JSON object or, for the authorize
// endpoint, as redirect URI parameters.
type Response map[string]any

// Grants eligible for a piggybacked refresh token on the token endpoint.
// The refresh_token grant rotates its own tokens and the remaining grants
// never involve a resource owner who could come back.
var refreshEligibleGrants = map[string]bool{
	"password":           true,
	"authorization_code": true,
}

// Authorization is the token issuance server: an orchestration facade over
// registered grants. It owns the shared collaborators (storage adapter,
// scope validator, token generator, lifetimes) and wires them into each
// grant at registration time.
type Authorization struct {
	storage         *storage.Adapter
	scopes          *ScopeValidator
	generator       TokenGenerator
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          *slog.Logger
	limiter         *security.RateLimiter
	metrics         *instrumentation.Metrics
	clock           func() time.Time

	grants        map[string]Grant
	responseTypes map[string]ResponseTypeGrant
}

// AuthorizationOption configures an Authorization server.
type AuthorizationOption func(*Authorization)

// WithScopeValidator replaces the default scope validator.
func WithScopeValidator(v *ScopeValidator) AuthorizationOption {
	return func(a *Authorization) {
		a.scopes = v
	}
}

// WithTokenGenerator replaces the default token generator.
func WithTokenGenerator(g TokenGenerator) AuthorizationOption {
	return func(a *Authorization) {
		a.generator = g
	}
}

// WithAccessTokenTTL sets the access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) AuthorizationOption {
	return func(a *Authorization) {
		if ttl > 0 {
			a.accessTokenTTL = ttl
		}
	}
}

// WithRefreshTokenTTL sets the refresh token lifetime.
func WithRefreshTokenTTL(ttl time.Duration) AuthorizationOption {
	return func(a *Authorization) {
		if ttl > 0 {
			a.refreshTokenTTL = ttl
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) AuthorizationOption {
	return func(a *Authorization) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRateLimiter installs a per-client rate limiter on the token endpoint.
func WithRateLimiter(limiter *security.RateLimiter) AuthorizationOption {
	return func(a *Authorization) {
		a.limiter = limiter
	}
}

// WithInstrumentation wires token issuance and grant execution metrics.
func WithInstrumentation(inst *instrumentation.Instrumentation) AuthorizationOption {
	return func(a *Authorization) {
		if inst != nil {
			a.metrics = inst.Metrics()
		}
	}
}

// WithClock replaces the time source. Used in tests.
func WithClock(clock func() time.Time) AuthorizationOption {
	return func(a *Authorization) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithConfig applies lifetimes and scope policy from a Config.
func WithConfig(cfg Config) AuthorizationOption {
	return func(a *Authorization) {
		cfg.ApplyDefaults()
		a.accessTokenTTL = cfg.AccessTokenTTL
		a.refreshTokenTTL = cfg.RefreshTokenTTL
		if cfg.TokenLength != DefaultTokenLength {
			a.generator = NewGenerator(cfg.TokenLength)
		}

		var opts []ScopeOption
		if cfg.ScopeDelimiter != "" {
			opts = append(opts, WithScopeDelimiter(cfg.ScopeDelimiter))
		}
		if len(cfg.DefaultScopes) > 0 {
			opts = append(opts, WithDefaultScope(cfg.DefaultScopes...))
		}
		if cfg.ScopeRequired {
			opts = append(opts, WithScopeRequired())
		}
		if len(opts) > 0 {
			a.scopes = NewScopeValidator(&adapterScopeStore{adapter: a.storage}, opts...)
		}
	}
}

// NewAuthorization creates an Authorization server backed by the given
// storage adapter. Register at least one grant before issuing tokens.
func NewAuthorization(adapter *storage.Adapter, opts ...AuthorizationOption) *Authorization {
	a := &Authorization{
		storage:         adapter,
		generator:       NewGenerator(DefaultTokenLength),
		accessTokenTTL:  DefaultAccessTokenTTL,
		refreshTokenTTL: DefaultRefreshTokenTTL,
		logger:          slog.Default(),
		clock:           time.Now,
		grants:          make(map[string]Grant),
		responseTypes:   make(map[string]ResponseTypeGrant),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.scopes == nil {
		a.scopes = NewScopeValidator(&adapterScopeStore{adapter: adapter})
	}
	return a
}

// RegisterGrant wires the shared collaborators into the grant and indexes
// it by its grant identifier. A grant declaring a response type is indexed
// there too; the last registration for a response type wins.
func (a *Authorization) RegisterGrant(grant Grant) *Authorization {
	if binder, ok := grant.(interface{ bind(grantDependencies) }); ok {
		binder.bind(grantDependencies{
			storage:         a.storage,
			scopes:          a.scopes,
			generator:       a.generator,
			accessTokenTTL:  a.accessTokenTTL,
			refreshTokenTTL: a.refreshTokenTTL,
			logger:          a.logger,
			now:             a.clock,
		})
	}

	a.grants[grant.GrantIdentifier()] = grant

	if rt, ok := grant.(ResponseTypeGrant); ok && rt.ResponseType() != "" {
		a.responseTypes[rt.ResponseType()] = rt
	}

	return a
}

// HasGrant reports whether a grant is registered for the identifier.
func (a *Authorization) HasGrant(identifier string) bool {
	_, ok := a.grants[identifier]
	return ok
}

// Grant returns the registered grant for the identifier, or nil.
func (a *Authorization) Grant(identifier string) Grant {
	return a.grants[identifier]
}

// IssueAccessToken runs the token endpoint: it resolves the grant from the
// grant_type parameter, executes it and shapes the issued token into a
// response map. A non-nil payload replaces the request's body parameters,
// which supports proxied invocations that keep client credentials out of
// the original request. When the executed grant is refresh-eligible and a
// refresh_token grant is registered, a refresh token bound to the same
// client, user and scopes is minted and added to the response.
func (a *Authorization) IssueAccessToken(ctx context.Context, r *Request, payload url.Values) (Response, error) {
	if payload != nil {
		r = r.WithPayload(payload)
	}

	if a.limiter != nil && !a.limiter.Allow(clientKey(r)) {
		return nil, ErrRateLimitExceeded()
	}

	if !strings.EqualFold(r.Method(), http.MethodPost) {
		return nil, ErrUnsupportedRequestMethod()
	}

	grantType := r.Param("grant_type")
	if grantType == "" {
		return nil, ErrMissingParameter("grant_type")
	}

	grant, ok := a.grants[grantType]
	if !ok {
		return nil, ErrUnknownGrant()
	}

	token, err := grant.Execute(ctx, r)
	if a.metrics != nil {
		a.metrics.RecordGrantExecution(ctx, grantType, err == nil && token != nil)
	}
	if err != nil {
		return nil, err
	}
	if token == nil {
		// The implicit grant issues tokens from the authorize endpoint
		// only; hitting the token endpoint with it is a grant misuse.
		return nil, ErrUnknownGrant()
	}

	response := a.makeResponse(r, token)

	if a.HasGrant("refresh_token") && refreshEligibleGrants[grantType] {
		refresh, err := a.issueRefreshToken(ctx, token)
		if err != nil {
			return nil, err
		}
		response["refresh_token"] = refresh.Token
	}

	if a.metrics != nil {
		a.metrics.RecordTokenIssued(ctx, string(token.Type), token.ClientID)
	}

	a.logger.DebugContext(ctx, "access token issued",
		"grant_type", grantType,
		"client_id", token.ClientID,
		"user_id", token.UserID)

	return response, nil
}

// ValidateAuthorizationRequest validates an authorize endpoint request by
// delegating to the grant registered for the requested response type.
func (a *Authorization) ValidateAuthorizationRequest(ctx context.Context, r *Request) (*AuthorizationRequest, error) {
	grant, ok := a.responseTypes[r.Param("response_type")]
	if !ok {
		return nil, ErrUnknownResponseType()
	}
	return grant.ValidateAuthorizationRequest(ctx, r)
}

// HandleAuthorizationRequest completes an approved authorize endpoint
// request, dispatching on the response type and shaping the resulting code
// or token entity into a response map.
func (a *Authorization) HandleAuthorizationRequest(ctx context.Context, r *Request, clientID, userID, redirectURI string, scopes map[string]storage.Scope) (Response, error) {
	grant, ok := a.responseTypes[r.Param("response_type")]
	if !ok {
		return nil, ErrUnknownResponseType()
	}

	entity, err := grant.HandleAuthorizationRequest(ctx, clientID, userID, redirectURI, scopes)
	if err != nil {
		return nil, err
	}

	if a.metrics != nil {
		switch e := entity.(type) {
		case *storage.AuthorizationCode:
			a.metrics.RecordCodeIssued(ctx, e.ClientID)
		case *storage.Token:
			a.metrics.RecordTokenIssued(ctx, string(e.Type), e.ClientID)
		}
	}

	return a.makeResponse(r, entity), nil
}

// MakeRedirectURI appends the response map to the effective redirection
// URI: as a query string for the code flow, as a fragment for token-based
// response types. The request's redirect_uri wins; absent that, the
// client's registered default is used; absent both, ErrNoRedirectURI.
func (a *Authorization) MakeRedirectURI(ctx context.Context, r *Request, response Response) (string, error) {
	separator := "#"
	if r.Param("response_type") == "code" {
		separator = "?"
	}

	redirectURI := r.Param("redirect_uri")
	if redirectURI == "" {
		clients, err := a.storage.Client()
		if err != nil {
			return "", err
		}

		client, err := clients.Get(ctx, r.Param("client_id"), "", "")
		if err != nil {
			return "", fmt.Errorf("oauth2: fetching client for redirect: %w", err)
		}
		if redirectURI = client.RedirectURI; redirectURI == "" {
			return "", ErrNoRedirectURI
		}
	}

	values := url.Values{}
	for key, value := range response {
		values.Set(key, fmt.Sprint(value))
	}

	return redirectURI + separator + values.Encode(), nil
}

// makeResponse shapes a token or authorization code entity into the wire
// response map, echoing the request's state parameter and the granted
// scopes when present.
func (a *Authorization) makeResponse(r *Request, entity any) Response {
	var (
		response Response
		scopes   map[string]storage.Scope
	)

	switch e := entity.(type) {
	case *storage.Token:
		response = Response{
			"access_token": e.Token,
			"token_type":   "Bearer",
			"expires":      e.Expires.Unix(),
			"expires_in":   int64(a.accessTokenTTL / time.Second),
		}
		scopes = e.Scopes
	case *storage.AuthorizationCode:
		response = Response{
			"code": e.Code,
		}
		scopes = e.Scopes
	default:
		return Response{}
	}

	if state := r.Param("state"); state != "" {
		response["state"] = state
	}

	if len(scopes) > 0 {
		keys := make([]string, 0, len(scopes))
		for key := range scopes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		response["scope"] = strings.Join(keys, a.scopes.Delimiter())
	}

	return response
}

// issueRefreshToken mints a refresh token carrying the access token's
// client, user and scopes.
func (a *Authorization) issueRefreshToken(ctx context.Context, access *storage.Token) (*storage.Token, error) {
	value, err := a.generator.Generate()
	if err != nil {
		return nil, err
	}

	tokens, err := a.storage.Token()
	if err != nil {
		return nil, err
	}

	expires := a.clock().Add(a.refreshTokenTTL)

	refresh, err := tokens.Create(ctx, value, storage.TokenRefresh, access.ClientID, access.UserID, expires)
	if err != nil {
		return nil, fmt.Errorf("oauth2: creating refresh token: %w", err)
	}

	if len(access.Scopes) > 0 {
		if err := tokens.AssociateScopes(ctx, refresh.Token, access.Scopes); err != nil {
			return nil, fmt.Errorf("oauth2: associating scopes with refresh token: %w", err)
		}
		refresh.AttachScopes(access.Scopes)
	}

	return refresh, nil
}

// clientKey identifies the requesting client for rate limiting, preferring
// Basic auth over body parameters.
func clientKey(r *Request) string {
	if id, _, ok := r.BasicAuth(); ok && id != "" {
		return id
	}
	return r.Param("client_id")
}

// adapterScopeStore defers scope store resolution to first use so a server
// can be constructed before the adapter's factory is exercised.
type adapterScopeStore struct {
	adapter *storage.Adapter
}

func (s *adapterScopeStore) Get(ctx context.Context, scope string) (*storage.Scope, error) {
	store, err := s.adapter.Scope()
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, scope)
}

func (s *adapterScopeStore) Create(ctx context.Context, scope, name, description string) (*storage.Scope, error) {
	store, err := s.adapter.Scope()
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, scope, name, description)
}

func (s *adapterScopeStore) Delete(ctx context.Context, scope string) error {
	store, err := s.adapter.Scope()
	if err != nil {
		return err
	}
	return store.Delete(ctx, scope)
}
