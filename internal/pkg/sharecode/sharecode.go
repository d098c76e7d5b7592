// Package sharecode generates and verifies the plaintext invitation
// codes handed to users. Only an Argon2id hash and a short lookup
// fingerprint are ever persisted; the plaintext exists solely in the
// response to the issuer.
package sharecode

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/alexedwards/argon2id"
)

const (
	// 32 random bytes, hex encoded: 256 bits of entropy, URL-safe,
	// no padding.
	codeBytes  = 32
	CodeLength = codeBytes * 2

	// Display formatting only. Hex never contains the delimiter, so
	// Normalize can strip it without ambiguity.
	groupSize = 8
	delimiter = "-"

	// First 8 bytes of SHA-256 of the plaintext. Indexed lookup key to
	// avoid verifying every active hash on redemption; reveals nothing
	// useful given the 256-bit code space.
	fingerprintBytes = 8
)

var hashParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  2,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

func New() string {
	buf := make([]byte, codeBytes)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func Format(code string) string {
	if len(code) <= groupSize {
		return code
	}
	var b strings.Builder
	b.Grow(len(code) + len(code)/groupSize)
	for i := 0; i < len(code); i += groupSize {
		if i > 0 {
			b.WriteString(delimiter)
		}
		end := i + groupSize
		if end > len(code) {
			end = len(code)
		}
		b.WriteString(code[i:end])
	}
	return b.String()
}

func Normalize(input string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(input), delimiter, ""))
}

func Fingerprint(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

func Hash(code string) (string, error) {
	return argon2id.CreateHash(code, hashParams)
}

func Verify(code, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(code, hash)
}
