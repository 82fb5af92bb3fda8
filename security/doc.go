// Package security provides security-related helpers for the OAuth server:
// per-client rate limiting for the token endpoint and bcrypt hashing of
// client secrets at rest.
//
// The RateLimiter keeps one token bucket per client identifier with LRU
// eviction and periodic cleanup, so sustained abuse from rotating
// identifiers cannot grow memory without bound:
//
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(clientID) {
//	    // rate limit exceeded
//	}
package security
