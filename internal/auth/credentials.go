package auth

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// totpOpts fixes the code parameters: 6 digits, 30 second step, and one step
// of clock skew in either direction, so the immediately preceding and
// following codes are accepted.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// HashPassword derives a salted bcrypt hash from the plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether candidate matches the stored bcrypt hash.
// Raw secrets are never compared directly.
func VerifyPassword(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// NewTOTPSecret generates a fresh base32 second-factor secret for the account.
func NewTOTPSecret(issuer, email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), nil
}

// VerifyTOTP reports whether code is a valid time-based one-time code for the
// secret within the accepted skew window. Malformed codes simply fail.
func VerifyTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpOpts)
	return err == nil && ok
}

// ProvisioningURI builds the deterministic otpauth:// enrollment URI for the
// secret, suitable for QR provisioning.
func ProvisioningURI(issuer, email, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("algorithm", totpOpts.Algorithm.String())
	v.Set("digits", totpOpts.Digits.String())
	v.Set("period", fmt.Sprintf("%d", totpOpts.Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + email,
		RawQuery: v.Encode(),
	}
	return u.String()
}
