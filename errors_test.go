package oauth2

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dingo/oauth2-server/internal/testutil"
)

// asError unwraps err into a *Error target.
func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

// assertProtocolError fails the test unless err is a *Error carrying the
// given code.
func assertProtocolError(t *testing.T, err error, code string) *Error {
	t.Helper()

	var protocolErr *Error
	if !asError(err, &protocolErr) {
		t.Fatalf("expected *Error with code %q, got %T: %v", code, err, err)
	}
	testutil.AssertEqual(t, protocolErr.Code, code)
	return protocolErr
}

func TestErrorFormatting(t *testing.T) {
	err := NewError("some_code", "Something happened.", http.StatusBadRequest)

	testutil.AssertEqual(t, err.Error(), "some_code: Something happened.")
	testutil.AssertEqual(t, err.Code, "some_code")
	testutil.AssertEqual(t, err.Status, http.StatusBadRequest)
}

func TestErrorConstructors(t *testing.T) {
	cases := []struct {
		name   string
		err    *Error
		code   string
		status int
	}{
		{"client authentication", ErrClientAuthenticationFailed(), ErrorCodeClientAuthenticationFailed, http.StatusUnauthorized},
		{"missing parameter", ErrMissingParameter("code"), ErrorCodeMissingParameter, http.StatusBadRequest},
		{"unsupported method", ErrUnsupportedRequestMethod(), ErrorCodeUnsupportedRequestMethod, http.StatusBadRequest},
		{"unknown grant", ErrUnknownGrant(), ErrorCodeUnknownGrant, http.StatusBadRequest},
		{"unknown response type", ErrUnknownResponseType(), ErrorCodeUnknownResponseType, http.StatusBadRequest},
		{"unknown authorization code", ErrUnknownAuthorizationCode(), ErrorCodeUnknownAuthorizationCode, http.StatusBadRequest},
		{"expired authorization code", ErrExpiredAuthorizationCode(), ErrorCodeExpiredAuthorizationCode, http.StatusBadRequest},
		{"mismatched redirection uri", ErrMismatchedRedirectionURI(), ErrorCodeMismatchedRedirectionURI, http.StatusBadRequest},
		{"invalid user credentials", ErrInvalidUserCredentials(), ErrorCodeInvalidUserCredentials, http.StatusBadRequest},
		{"missing scope", ErrMissingScope(), ErrorCodeMissingScope, http.StatusBadRequest},
		{"unknown scope", ErrUnknownScope("admin"), ErrorCodeUnknownScope, http.StatusBadRequest},
		{"scope not granted", ErrScopeNotGranted("admin"), ErrorCodeScopeNotGranted, http.StatusBadRequest},
		{"missing token", ErrMissingToken(), ErrorCodeMissingToken, http.StatusUnauthorized},
		{"unknown token", ErrUnknownToken(), ErrorCodeUnknownToken, http.StatusUnauthorized},
		{"unknown refresh token", ErrUnknownRefreshToken(), ErrorCodeUnknownToken, http.StatusBadRequest},
		{"expired token", ErrExpiredToken(), ErrorCodeExpiredToken, http.StatusUnauthorized},
		{"mismatched scope", ErrMismatchedScope("write"), ErrorCodeMismatchedScope, http.StatusUnauthorized},
		{"rate limit exceeded", ErrRateLimitExceeded(), ErrorCodeRateLimitExceeded, http.StatusBadRequest},
		{"server error", ErrServerError("storage unreachable"), ErrorCodeServerError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertEqual(t, tc.err.Code, tc.code)
			testutil.AssertEqual(t, tc.err.Status, tc.status)
			testutil.AssertTrue(t, tc.err.Description != "", "description must not be empty")
		})
	}
}

func TestErrorDescriptionCarriesParameter(t *testing.T) {
	err := ErrMissingParameter("grant_type")
	testutil.AssertStringContains(t, err.Description, "grant_type")

	err = ErrUnknownScope("admin")
	testutil.AssertStringContains(t, err.Description, "admin")
}
