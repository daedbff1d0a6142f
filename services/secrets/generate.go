package secrets

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	secretSize = 32 // 256 bits
	slugSize   = 5  // 40 bits, 8 base32 chars
)

var slugEncoding = base32.NewEncoding("abcdefghijkmnpqrstuvwxyz23456789").WithPadding(base32.NoPadding)

// Generate returns a base64-encoded random 256-bit secret.
func Generate() (string, error) {
	buf, err := randomBytes(secretSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateSlug returns a short random URL-safe identifier for share links.
// The alphabet leaves out characters that are easy to confuse when read
// aloud or off a screen (0/o, 1/l).
func GenerateSlug() (string, error) {
	buf, err := randomBytes(slugSize)
	if err != nil {
		return "", err
	}
	return slugEncoding.EncodeToString(buf), nil
}

func randomBytes(size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return nil, fmt.Errorf("error reading bytes from crypto/rand: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("unexpected number of bytes read from crypto/rand, want %d, got %d", size, n)
	}
	return buf, nil
}

func readBinary(secret string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("error decoding binary secret from base64: %w", err)
	}
	return b, nil
}
