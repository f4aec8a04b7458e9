package login

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// passcodeRange covers the 6-digit codes 100000 through 999999. Codes are
// drawn uniformly from the whole range, never zero-padded shorter numbers.
var passcodeRange = big.NewInt(900000)

// GeneratePasscode returns a cryptographically random 6-digit code used for
// email verification and password reset.
func GeneratePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, passcodeRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
