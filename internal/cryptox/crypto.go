// Package cryptox implements credential hashing and verification for the
// locally stored user secrets.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/tama-audit/auditor/internal/common"
)

// Argon2id parameters. Tuned for interactive login on field tablets.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// DeriveKey returns the Argon2id key of password under salt.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashCredential returns a self-contained digest (random salt followed by
// the derived key) suitable for storage in the settings table.
func HashCredential(password []byte) []byte {
	salt := common.GenerateRandByteArray(saltLen)
	return append(salt, DeriveKey(password, salt)...)
}

// VerifyCredential reports whether password matches a digest produced by
// HashCredential. Malformed digests never match.
func VerifyCredential(password, digest []byte) bool {
	if len(digest) != saltLen+int(argonKeyLen) {
		return false
	}
	salt, key := digest[:saltLen], digest[saltLen:]
	candidate := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(candidate, key) == 1
}
