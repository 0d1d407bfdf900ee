package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
)

const OTPLength = 6

var ten = big.NewInt(10)

// GenerateOTP draws OTPLength independent uniform decimal digits.
func GenerateOTP() (string, error) {
	return generateOTP(rand.Reader)
}

func generateOTP(r io.Reader) (string, error) {
	buf := make([]byte, OTPLength)
	for i := range buf {
		d, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// RandomToken returns n random bytes, base64url encoded without padding.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
