package newsletter

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// TokenLength is the hex-encoded length of an unsubscribe token:
// 32 random bytes, 64 characters.
const TokenLength = 64

// GenerateToken returns a new URL-safe unsubscribe/confirmation token
func GenerateToken() (string, error) {
	buf := make([]byte, TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "rand.Read")
	}
	return hex.EncodeToString(buf), nil
}
