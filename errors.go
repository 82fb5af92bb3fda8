package oauth2

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes carried by *Error values.
const (
	ErrorCodeClientAuthenticationFailed = "client_authentication_failed"
	ErrorCodeMissingParameter           = "missing_parameter"
	ErrorCodeUnsupportedRequestMethod   = "unsupported_request_method"
	ErrorCodeUnknownGrant               = "unknown_grant"
	ErrorCodeUnknownResponseType        = "unknown_response_type"
	ErrorCodeUnknownAuthorizationCode   = "unknown_authorization_code"
	ErrorCodeExpiredAuthorizationCode   = "expired_authorization_code"
	ErrorCodeMismatchedClient           = "mismatched_client"
	ErrorCodeMismatchedRedirectionURI   = "mismatched_redirection_uri"
	ErrorCodeInvalidUserCredentials     = "invalid_user_credentials"
	ErrorCodeMissingScope               = "missing_scope"
	ErrorCodeUnknownScope               = "unknown_scope"
	ErrorCodeScopeNotGranted            = "scope_not_granted"
	ErrorCodeMissingToken               = "missing_token"
	ErrorCodeUnknownToken               = "unknown_token"
	ErrorCodeExpiredToken               = "expired_token"
	ErrorCodeMismatchedScope            = "mismatched_scope"
	ErrorCodeRateLimitExceeded          = "rate_limit_exceeded"
	ErrorCodeServerError                = "server_error"
)

// Error is a protocol-level failure: a machine-readable code, a
// human-readable description and the HTTP status the transport layer should
// respond with. The core raises these fail-fast and never downgrades them;
// serializing them into an RFC 6749 error body is the caller's concern.
type Error struct {
	Code        string
	Description string
	Status      int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewError creates a protocol error with an explicit code, description and
// HTTP status.
func NewError(code, description string, status int) *Error {
	return &Error{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// ErrClientAuthenticationFailed indicates the client could not be resolved
// from its credentials.
func ErrClientAuthenticationFailed() *Error {
	return NewError(ErrorCodeClientAuthenticationFailed, "The client failed to authenticate.", http.StatusUnauthorized)
}

// ErrMissingParameter indicates a required request parameter was absent or
// empty.
func ErrMissingParameter(parameter string) *Error {
	return NewError(ErrorCodeMissingParameter, fmt.Sprintf("The request is missing the %q parameter.", parameter), http.StatusBadRequest)
}

// ErrUnsupportedRequestMethod indicates the token endpoint was hit with
// anything other than POST.
func ErrUnsupportedRequestMethod() *Error {
	return NewError(ErrorCodeUnsupportedRequestMethod, "The request method must be POST.", http.StatusBadRequest)
}

// ErrUnknownGrant indicates no grant is registered for the requested
// grant type.
func ErrUnknownGrant() *Error {
	return NewError(ErrorCodeUnknownGrant, "The authorization server does not support the requested grant.", http.StatusBadRequest)
}

// ErrUnknownResponseType indicates no grant is registered for the requested
// response type.
func ErrUnknownResponseType() *Error {
	return NewError(ErrorCodeUnknownResponseType, "The authorization server does not recognize the provided response type.", http.StatusBadRequest)
}

// ErrUnknownAuthorizationCode indicates the presented authorization code
// does not exist (or has already been exchanged).
func ErrUnknownAuthorizationCode() *Error {
	return NewError(ErrorCodeUnknownAuthorizationCode, "The authorization code does not exist.", http.StatusBadRequest)
}

// ErrExpiredAuthorizationCode indicates the authorization code has expired.
func ErrExpiredAuthorizationCode() *Error {
	return NewError(ErrorCodeExpiredAuthorizationCode, "The authorization code has expired.", http.StatusBadRequest)
}

// ErrMismatchedClient indicates a code or refresh token is not associated
// with the authenticated client.
func ErrMismatchedClient(description string) *Error {
	return NewError(ErrorCodeMismatchedClient, description, http.StatusBadRequest)
}

// ErrMismatchedRedirectionURI indicates the redirection URI presented at
// code exchange does not match the URI the code was issued with.
func ErrMismatchedRedirectionURI() *Error {
	return NewError(ErrorCodeMismatchedRedirectionURI, "The redirection URI does not match the redirection URI of the authorization code.", http.StatusBadRequest)
}

// ErrInvalidUserCredentials indicates the resource owner failed to
// authenticate during the password grant.
func ErrInvalidUserCredentials() *Error {
	return NewError(ErrorCodeInvalidUserCredentials, "The user credentials failed to authenticate.", http.StatusBadRequest)
}

// ErrMissingScope indicates no scope was requested while the validator
// requires one.
func ErrMissingScope() *Error {
	return NewError(ErrorCodeMissingScope, "The request is missing the \"scope\" parameter.", http.StatusBadRequest)
}

// ErrUnknownScope indicates a requested scope is not known to storage.
func ErrUnknownScope(scope string) *Error {
	return NewError(ErrorCodeUnknownScope, fmt.Sprintf("The requested scope %q is invalid or unknown.", scope), http.StatusBadRequest)
}

// ErrScopeNotGranted indicates a refresh request asked for a scope the
// original grant did not include.
func ErrScopeNotGranted(scope string) *Error {
	return NewError(ErrorCodeScopeNotGranted, fmt.Sprintf("The requested scope %q was not originally granted.", scope), http.StatusBadRequest)
}

// ErrMissingToken indicates no access token accompanied a protected
// resource request.
func ErrMissingToken() *Error {
	return NewError(ErrorCodeMissingToken, "Access token was not supplied.", http.StatusUnauthorized)
}

// ErrUnknownToken indicates the presented access token does not exist in
// storage.
func ErrUnknownToken() *Error {
	return NewError(ErrorCodeUnknownToken, "Invalid access token.", http.StatusUnauthorized)
}

// ErrUnknownRefreshToken indicates the presented refresh token does not
// exist in storage. Unlike ErrUnknownToken this is a request error, not an
// authentication error: the client authenticated fine but presented a bad
// token parameter.
func ErrUnknownRefreshToken() *Error {
	return NewError(ErrorCodeUnknownToken, "Invalid refresh token.", http.StatusBadRequest)
}

// ErrExpiredToken indicates the presented access token has expired.
func ErrExpiredToken() *Error {
	return NewError(ErrorCodeExpiredToken, "Access token has expired.", http.StatusUnauthorized)
}

// ErrMismatchedScope indicates the presented token lacks a scope a
// protected resource requires.
func ErrMismatchedScope(scope string) *Error {
	return NewError(ErrorCodeMismatchedScope, fmt.Sprintf("Requested scope %q is not associated with this access token.", scope), http.StatusUnauthorized)
}

// ErrRateLimitExceeded indicates the client exceeded the token endpoint
// rate limit.
func ErrRateLimitExceeded() *Error {
	return NewError(ErrorCodeRateLimitExceeded, "Too many token requests, slow down.", http.StatusBadRequest)
}

// ErrServerError indicates an internal failure while handling an otherwise
// valid request.
func ErrServerError(description string) *Error {
	return NewError(ErrorCodeServerError, description, http.StatusInternalServerError)
}
