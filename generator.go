package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// DefaultTokenLength is the length of generated token strings. At roughly
// six bits of entropy per character this gives 240 bits per token.
const DefaultTokenLength = 40

// ErrRandomSource indicates the cryptographically secure random source is
// unavailable. Treated as fatal for the request; never retried.
var ErrRandomSource = errors.New("oauth2: secure random source unavailable")

// TokenGenerator produces unguessable opaque token strings. Implementations
// must draw from a cryptographically secure source, never from predictable
// seeds such as time or counters.
type TokenGenerator interface {
	Generate() (string, error)
}

// Generator is the default TokenGenerator: a fixed-length URL-safe string
// derived from crypto/rand.
type Generator struct {
	length int
}

// NewGenerator creates a generator producing strings of the given length.
// Lengths below one fall back to DefaultTokenLength.
func NewGenerator(length int) Generator {
	if length < 1 {
		length = DefaultTokenLength
	}
	return Generator{length: length}
}

// Generate returns a new random token string.
func (g Generator) Generate() (string, error) {
	length := g.length
	if length < 1 {
		length = DefaultTokenLength
	}

	// Twice the requested length in raw bytes encodes to comfortably more
	// base64 characters than needed.
	buf := make([]byte, length*2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}

// VerifierGenerator is a TokenGenerator backed by oauth2.GenerateVerifier.
// It produces 43-character URL-safe strings of PKCE verifier quality and is
// a drop-in alternative entropy source.
type VerifierGenerator struct{}

// Generate returns a new random token string.
func (VerifierGenerator) Generate() (string, error) {
	return oauth2.GenerateVerifier(), nil
}
