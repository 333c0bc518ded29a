package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Admin1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Admin1!", hash)

	assert.True(t, VerifyPassword(hash, "Admin1!"))
	assert.False(t, VerifyPassword(hash, "admin1!"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("not-a-hash", "Admin1!"))
}

func TestNewTOTPSecret(t *testing.T) {
	s1, err := NewTOTPSecret("Lucky Six", "alice@example.com")
	require.NoError(t, err)
	s2, err := NewTOTPSecret("Lucky Six", "alice@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
}

func TestVerifyTOTP(t *testing.T) {
	secret, err := NewTOTPSecret("Lucky Six", "alice@example.com")
	require.NoError(t, err)

	now := time.Now().UTC()

	code, err := totp.GenerateCode(secret, now)
	require.NoError(t, err)
	assert.True(t, VerifyTOTP(secret, code))

	// one step of skew in either direction is accepted
	prev, err := totp.GenerateCode(secret, now.Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, VerifyTOTP(secret, prev))

	next, err := totp.GenerateCode(secret, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.True(t, VerifyTOTP(secret, next))

	// two steps out is rejected
	stale, err := totp.GenerateCode(secret, now.Add(-90*time.Second))
	require.NoError(t, err)
	assert.False(t, VerifyTOTP(secret, stale))

	assert.False(t, VerifyTOTP(secret, "000000"))
	assert.False(t, VerifyTOTP(secret, "not-a-code"))
	assert.False(t, VerifyTOTP(secret, ""))
}

func TestProvisioningURI(t *testing.T) {
	uri := ProvisioningURI("Lucky Six", "alice@example.com", "JBSWY3DPEHPK3PXP")

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "alice@example.com")
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=Lucky+Six")

	// deterministic: same inputs, same URI
	assert.Equal(t, uri, ProvisioningURI("Lucky Six", "alice@example.com", "JBSWY3DPEHPK3PXP"))
}
