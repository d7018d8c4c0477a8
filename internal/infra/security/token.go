package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	authservice "github.com/slogsolutions/WebBuyer/internal/app/services/auth"
)

// RandomTokenGenerator mints opaque session tokens. Tokens carry no
// claims on purpose; sessions resolve through the store.
type RandomTokenGenerator struct {
	Size int
}

var _ authservice.TokenGenerator = RandomTokenGenerator{}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
