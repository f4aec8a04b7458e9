package twofa

import (
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// PERIOD is the TOTP step in seconds.
	PERIOD = 30
	// SKEW accepts one step on either side of the current one, tolerating
	// clock drift between server and authenticator app.
	SKEW = 1
)

// GenerateTotpSecret creates a new TOTP key for the account and returns the
// base32 secret together with the otpauth:// provisioning URL.
func GenerateTotpSecret(issuer, accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "accountName", accountName, "issuer", issuer, "error", err)
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTotpPasscode checks a 6-digit passcode against the secret at the
// given instant.
func ValidateTotpPasscode(totpSecret, passcode string, at time.Time) (bool, error) {
	valid, err := totp.ValidateCustom(passcode, totpSecret, at.UTC(), totp.ValidateOpts{
		Period:    PERIOD,
		Skew:      SKEW,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "error", err)
		return false, err
	}
	return valid, nil
}
