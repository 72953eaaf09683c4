package numbering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeNumbers(t *testing.T) {
	numbers, err := NewSnowflakeNumbers(7)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		q := numbers.NextQuoteNumber()
		require.True(t, strings.HasPrefix(q, "Q-"), q)
		assert.Equal(t, strings.ToUpper(q), q)
		require.False(t, seen[q], "duplicate %s", q)
		seen[q] = true
	}
	assert.True(t, strings.HasPrefix(numbers.NextPolicyNumber(), "P-"))
}

func TestNewSnowflakeNumbers_InvalidNode(t *testing.T) {
	_, err := NewSnowflakeNumbers(4096)
	assert.Error(t, err)
}
