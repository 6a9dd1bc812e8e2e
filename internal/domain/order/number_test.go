package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumberFormat(t *testing.T) {
	n, err := NewNumber()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(n, NumberPrefix))
	suffix := strings.TrimPrefix(n, NumberPrefix)
	require.Len(t, suffix, numberLength)
	for _, r := range suffix {
		assert.Contains(t, numberAlphabet, string(r))
	}
}

// Ten thousand generated numbers should be collision-free with overwhelming
// probability (36^10 possible suffixes). A collision here points at a broken
// random source, not bad luck.
func TestNewNumberNoCollisions(t *testing.T) {
	const trials = 10_000

	seen := make(map[string]struct{}, trials)
	for range trials {
		n, err := NewNumber()
		require.NoError(t, err)
		_, dup := seen[n]
		require.False(t, dup, "duplicate order number %s", n)
		seen[n] = struct{}{}
	}
}
