package oauth2

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dingo/oauth2-server/instrumentation"
	"github.com/dingo/oauth2-server/internal/testutil"
	"github.com/dingo/oauth2-server/security"
	"github.com/dingo/oauth2-server/storage"
	"github.com/dingo/oauth2-server/storage/memory"
)

// serverFixture bundles an Authorization server over an in-memory backend
// seeded with a confidential client and the "read" and "write" scopes.
type serverFixture struct {
	adapter *storage.Adapter
	server  *Authorization
	clock   *testutil.MockTime
}

func newServerFixture(t *testing.T, opts ...AuthorizationOption) *serverFixture {
	t.Helper()

	adapter := storage.NewAdapter(memory.New())
	clock := testutil.NewMockTime(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	opts = append([]AuthorizationOption{WithClock(clock.Now)}, opts...)
	server := NewAuthorization(adapter, opts...)

	ctx := context.Background()

	clients, err := adapter.Client()
	testutil.AssertNoError(t, err)
	_, err = clients.Create(ctx, "test-client", "test-secret", "Test Client", []storage.RedirectURI{
		{URI: "https://example.com/callback", Default: true},
		{URI: "https://example.com/alt"},
	}, false)
	testutil.AssertNoError(t, err)

	scopes, err := adapter.Scope()
	testutil.AssertNoError(t, err)
	for _, id := range []string{"read", "write"} {
		_, err := scopes.Create(ctx, id, id, "")
		testutil.AssertNoError(t, err)
	}

	return &serverFixture{adapter: adapter, server: server, clock: clock}
}

// tokenRequest builds a token endpoint request authenticated as the
// fixture's client, with extra form parameters merged in.
func tokenRequest(params url.Values) *Request {
	values := url.Values{
		"client_id":     {"test-client"},
		"client_secret": {"test-secret"},
	}
	for key, vals := range params {
		values[key] = vals
	}
	return NewRequest(testutil.NewFormRequest(values))
}

// authorizeRequest builds an authorize endpoint request for the fixture's
// client.
func authorizeRequest(responseType string, params url.Values) *Request {
	values := url.Values{
		"response_type": {responseType},
		"client_id":     {"test-client"},
		"redirect_uri":  {"https://example.com/callback"},
	}
	for key, vals := range params {
		values[key] = vals
	}
	return NewRequest(testutil.NewQueryRequest(values))
}

func (f *serverFixture) tokenStore(t *testing.T) storage.TokenStore {
	t.Helper()
	tokens, err := f.adapter.Token()
	testutil.AssertNoError(t, err)
	return tokens
}

func TestIssueAccessTokenRequiresPost(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := NewRequest(testutil.NewQueryRequest(url.Values{"grant_type": {"client_credentials"}}))

	_, err := f.server.IssueAccessToken(context.Background(), r, nil)
	assertProtocolError(t, err, ErrorCodeUnsupportedRequestMethod)
}

func TestIssueAccessTokenRequiresGrantType(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	_, err := f.server.IssueAccessToken(context.Background(), tokenRequest(url.Values{}), nil)
	assertProtocolError(t, err, ErrorCodeMissingParameter)
}

func TestIssueAccessTokenUnknownGrant(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := tokenRequest(url.Values{"grant_type": {"password"}})

	_, err := f.server.IssueAccessToken(context.Background(), r, nil)
	assertProtocolError(t, err, ErrorCodeUnknownGrant)
}

func TestIssueAccessTokenRejectsImplicitGrantType(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewImplicitGrant())

	r := tokenRequest(url.Values{"grant_type": {"implicit"}})

	_, err := f.server.IssueAccessToken(context.Background(), r, nil)
	assertProtocolError(t, err, ErrorCodeUnknownGrant)
}

func TestIssueAccessTokenResponseShape(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := tokenRequest(url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"read write"},
		"state":      {"xyz"},
	})

	response, err := f.server.IssueAccessToken(context.Background(), r, nil)
	testutil.AssertNoError(t, err)

	token, ok := response["access_token"].(string)
	testutil.AssertTrue(t, ok && token != "", "access_token must be a non-empty string")
	testutil.AssertEqual(t, response["token_type"], "Bearer")
	testutil.AssertEqual(t, response["expires"], f.clock.Now().Add(DefaultAccessTokenTTL).Unix())
	testutil.AssertEqual(t, response["expires_in"], int64(DefaultAccessTokenTTL/time.Second))
	testutil.AssertEqual(t, response["scope"], "read write")
	testutil.AssertEqual(t, response["state"], "xyz")

	if _, ok := response["refresh_token"]; ok {
		t.Error("client_credentials must not receive a refresh token")
	}
}

func TestIssueAccessTokenPayloadReplacesBody(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := NewRequest(testutil.NewFormRequest(url.Values{}))
	payload := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"test-client"},
		"client_secret": {"test-secret"},
	}

	response, err := f.server.IssueAccessToken(context.Background(), r, payload)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, response["access_token"] != "", "expected an access token")
}

func TestIssueAccessTokenAttachesRefreshToken(t *testing.T) {
	f := newServerFixture(t)
	authenticator := UserAuthenticatorFunc(func(ctx context.Context, username, password string) (string, bool) {
		return "user-1", username == "alice" && password == "hunter2"
	})
	f.server.
		RegisterGrant(NewPasswordGrant(authenticator)).
		RegisterGrant(NewRefreshTokenGrant())

	r := tokenRequest(url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"hunter2"},
		"scope":      {"read"},
	})

	response, err := f.server.IssueAccessToken(context.Background(), r, nil)
	testutil.AssertNoError(t, err)

	refresh, ok := response["refresh_token"].(string)
	testutil.AssertTrue(t, ok && refresh != "", "expected a refresh token")

	stored, err := f.tokenStore(t).GetWithScopes(context.Background(), refresh)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, stored.Type, storage.TokenRefresh)
	testutil.AssertEqual(t, stored.ClientID, "test-client")
	testutil.AssertEqual(t, stored.UserID, "user-1")
	testutil.AssertTrue(t, stored.HasScope("read"), "refresh token carries the granted scopes")
}

func TestIssueAccessTokenNoRefreshTokenWithoutRefreshGrant(t *testing.T) {
	f := newServerFixture(t)
	authenticator := UserAuthenticatorFunc(func(ctx context.Context, username, password string) (string, bool) {
		return "user-1", true
	})
	f.server.RegisterGrant(NewPasswordGrant(authenticator))

	r := tokenRequest(url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"hunter2"},
	})

	response, err := f.server.IssueAccessToken(context.Background(), r, nil)
	testutil.AssertNoError(t, err)

	if _, ok := response["refresh_token"]; ok {
		t.Error("no refresh token without a registered refresh_token grant")
	}
}

func TestIssueAccessTokenRateLimited(t *testing.T) {
	limiter := security.NewRateLimiter(1, 1, slog.Default())
	defer limiter.Stop()

	f := newServerFixture(t, WithRateLimiter(limiter))
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}})

	_, err := f.server.IssueAccessToken(context.Background(), r, nil)
	testutil.AssertNoError(t, err)

	_, err = f.server.IssueAccessToken(context.Background(), r, nil)
	assertProtocolError(t, err, ErrorCodeRateLimitExceeded)
}

func TestInstrumentedIssuanceRecordsWithoutError(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{ServiceName: "test"})
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })

	f := newServerFixture(t, WithInstrumentation(inst))
	f.server.RegisterGrant(NewClientCredentialsGrant())

	r := tokenRequest(url.Values{"grant_type": {"client_credentials"}})

	response, err := f.server.IssueAccessToken(context.Background(), r, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, response["access_token"] != "", "expected an access token")

	// Failures are recorded too; noop providers must stay silent.
	_, err = f.server.IssueAccessToken(context.Background(), tokenRequest(url.Values{"grant_type": {"password"}}), nil)
	assertProtocolError(t, err, ErrorCodeUnknownGrant)
}

func TestHasGrant(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewClientCredentialsGrant())

	testutil.AssertTrue(t, f.server.HasGrant("client_credentials"), "registered grant must be reported")
	testutil.AssertFalse(t, f.server.HasGrant("password"), "unregistered grant must not be reported")
	testutil.AssertTrue(t, f.server.Grant("client_credentials") != nil, "registered grant must be returned")
	testutil.AssertTrue(t, f.server.Grant("password") == nil, "unregistered grant must be nil")
}

func TestValidateAuthorizationRequestUnknownResponseType(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewAuthorizationCodeGrant(nil))

	r := authorizeRequest("token", url.Values{})

	_, err := f.server.ValidateAuthorizationRequest(context.Background(), r)
	assertProtocolError(t, err, ErrorCodeUnknownResponseType)
}

func TestAuthorizationCodeFlowEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewAuthorizationCodeGrant(nil))

	ctx := context.Background()
	authorize := authorizeRequest("code", url.Values{
		"scope": {"read"},
		"state": {"xyz"},
	})

	authRequest, err := f.server.ValidateAuthorizationRequest(ctx, authorize)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, authRequest.ClientID, "test-client")
	testutil.AssertEqual(t, authRequest.RedirectURI, "https://example.com/callback")
	testutil.AssertEqual(t, authRequest.State, "xyz")
	testutil.AssertTrue(t, authRequest.Client != nil, "validated request carries the client entity")

	response, err := f.server.HandleAuthorizationRequest(ctx, authorize,
		authRequest.ClientID, "user-1", authRequest.RedirectURI, authRequest.Scopes)
	testutil.AssertNoError(t, err)

	code, ok := response["code"].(string)
	testutil.AssertTrue(t, ok && code != "", "expected an authorization code")
	testutil.AssertEqual(t, response["state"], "xyz")
	testutil.AssertEqual(t, response["scope"], "read")

	exchange := tokenRequest(url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"https://example.com/callback"},
	})

	tokenResponse, err := f.server.IssueAccessToken(ctx, exchange, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, tokenResponse["access_token"] != "", "expected an access token")
	testutil.AssertEqual(t, tokenResponse["scope"], "read")

	// The code is single use: a second exchange must fail.
	_, err = f.server.IssueAccessToken(ctx, exchange, nil)
	assertProtocolError(t, err, ErrorCodeUnknownAuthorizationCode)
}

func TestImplicitFlowIssuesTokenFromAuthorizeEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.server.RegisterGrant(NewImplicitGrant())

	ctx := context.Background()
	authorize := authorizeRequest("token", url.Values{"scope": {"read"}})

	authRequest, err := f.server.ValidateAuthorizationRequest(ctx, authorize)
	testutil.AssertNoError(t, err)

	response, err := f.server.HandleAuthorizationRequest(ctx, authorize,
		authRequest.ClientID, "user-1", authRequest.RedirectURI, authRequest.Scopes)
	testutil.AssertNoError(t, err)

	token, ok := response["access_token"].(string)
	testutil.AssertTrue(t, ok && token != "", "expected an access token")
	testutil.AssertEqual(t, response["token_type"], "Bearer")

	stored, err := f.tokenStore(t).Get(ctx, token)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, stored.Type, storage.TokenAccess)
	testutil.AssertEqual(t, stored.UserID, "user-1")
}

func TestMakeRedirectURI(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	t.Run("code uses query separator", func(t *testing.T) {
		r := authorizeRequest("code", url.Values{})
		uri, err := f.server.MakeRedirectURI(ctx, r, Response{"code": "abc", "state": "xyz"})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, uri, "https://example.com/callback?code=abc&state=xyz")
	})

	t.Run("token uses fragment separator", func(t *testing.T) {
		r := authorizeRequest("token", url.Values{})
		uri, err := f.server.MakeRedirectURI(ctx, r, Response{"access_token": "abc"})
		testutil.AssertNoError(t, err)
		testutil.AssertTrue(t, strings.HasPrefix(uri, "https://example.com/callback#"), "fragment separator expected")
	})

	t.Run("falls back to registered default", func(t *testing.T) {
		r := NewRequest(testutil.NewQueryRequest(url.Values{
			"response_type": {"code"},
			"client_id":     {"test-client"},
		}))
		uri, err := f.server.MakeRedirectURI(ctx, r, Response{"code": "abc"})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, uri, "https://example.com/callback?code=abc")
	})

	t.Run("no redirect uri anywhere", func(t *testing.T) {
		clients, err := f.adapter.Client()
		testutil.AssertNoError(t, err)
		_, err = clients.Create(ctx, "bare-client", "secret", "Bare", nil, false)
		testutil.AssertNoError(t, err)

		r := NewRequest(testutil.NewQueryRequest(url.Values{
			"response_type": {"code"},
			"client_id":     {"bare-client"},
		}))
		_, err = f.server.MakeRedirectURI(ctx, r, Response{"code": "abc"})
		if err != ErrNoRedirectURI {
			t.Fatalf("expected ErrNoRedirectURI, got %v", err)
		}
	})
}
