package oauth2

import (
	"testing"

	"github.com/dingo/oauth2-server/internal/testutil"
)

func TestGeneratorLength(t *testing.T) {
	g := NewGenerator(DefaultTokenLength)

	token, err := g.Generate()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(token), DefaultTokenLength)
}

func TestGeneratorCustomLength(t *testing.T) {
	g := NewGenerator(64)

	token, err := g.Generate()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(token), 64)
}

func TestGeneratorInvalidLengthFallsBack(t *testing.T) {
	g := NewGenerator(0)

	token, err := g.Generate()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(token), DefaultTokenLength)
}

func TestGeneratorDistinctness(t *testing.T) {
	g := NewGenerator(DefaultTokenLength)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		token, err := g.Generate()
		testutil.AssertNoError(t, err)
		if seen[token] {
			t.Fatalf("duplicate token after %d generations: %s", i, token)
		}
		seen[token] = true
	}
}

func TestVerifierGenerator(t *testing.T) {
	var g VerifierGenerator

	first, err := g.Generate()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(first), 43)

	second, err := g.Generate()
	testutil.AssertNoError(t, err)
	testutil.AssertNotEqual(t, first, second)
}
