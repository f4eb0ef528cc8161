package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// ReferralType represents the type of entity for which a referral code is being generated
type ReferralType string

const (
	AgentType ReferralType = "AGT"
)

// GenerateReferralCode generates a referral code for the specified entity type
// Format: {TYPE}-{RANDOM} where RANDOM is 6 alphanumeric characters
// Example: AGT-ABC123
func GenerateReferralCode(entityType ReferralType) (string, error) {
	// Generate 4 random bytes (will give us 6 characters in base32)
	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	// Convert to base32 and take first 6 characters
	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = randomStr[:6]

	// Convert to uppercase and remove any non-alphanumeric characters
	randomStr = strings.ToUpper(randomStr)
	randomStr = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, randomStr)

	// Ensure we have exactly 6 characters
	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return string(entityType) + "-" + randomStr, nil
}

// GenerateAgentReferralCode generates a referral code for an affiliate agent
func GenerateAgentReferralCode() (string, error) {
	return GenerateReferralCode(AgentType)
}
