package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAgentReferralCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateAgentReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, `^AGT-[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	// Collisions are possible but should be vanishingly rare over 100 draws.
	assert.Greater(t, len(seen), 95)
}
