// Package password implements the versioned PBKDF2-HMAC-SHA256 password hash
// format used to store user credentials in the server's auth config.
//
// Wire format (before hex-encoding), version 1:
//
//	offset  size  field
//	 0      1     version (= 1)
//	 1      4     iterations (big-endian uint32)
//	 5      16    salt
//	21      32    hash (PBKDF2-HMAC-SHA256 output)
//	total: 53 bytes -> 106 hex characters
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	version1       byte = 1
	saltLen             = 16
	hashLen             = sha256.Size
	defaultIterations   = 10_000
	partsLen            = 1 + 4 + saltLen + hashLen // 53
	hexLen              = partsLen * 2              // 106
)

// ErrMalformedInput is returned when a stored hash string does not decode to
// a value of the expected binary layout.
var ErrMalformedInput = errors.New("password: malformed input")

// ErrUnsupportedVersion is returned when a stored hash's version byte is not
// one this package knows how to verify.
var ErrUnsupportedVersion = errors.New("password: unsupported version")

// Parts is the parsed view of a versioned password hash.
type Parts struct {
	Version    byte
	Iterations uint32
	Salt       []byte
	Hash       []byte
}

// Hash derives a new password hash from plain using a freshly generated
// random salt and the default iteration count, returning it hex-encoded.
func Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: generating salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(plain), salt, defaultIterations, hashLen, sha256.New)

	buf := make([]byte, 0, partsLen)
	buf = append(buf, version1)
	buf = binary.BigEndian.AppendUint32(buf, defaultIterations)
	buf = append(buf, salt...)
	buf = append(buf, derived...)

	return hex.EncodeToString(buf), nil
}

// Parse decodes a hex-encoded hash into its component parts. It does not
// validate the version field; callers that intend to verify against the
// parts should check Version themselves (Verify does this for them).
func Parse(stored string) (Parts, error) {
	raw, err := hex.DecodeString(stored)
	if err != nil {
		return Parts{}, ErrMalformedInput
	}
	if len(raw) != partsLen {
		return Parts{}, ErrMalformedInput
	}

	return Parts{
		Version:    raw[0],
		Iterations: binary.BigEndian.Uint32(raw[1:5]),
		Salt:       raw[5 : 5+saltLen],
		Hash:       raw[5+saltLen : 5+saltLen+hashLen],
	}, nil
}

// Verify reports whether plain is the password that produced stored. It
// returns ErrMalformedInput or ErrUnsupportedVersion (rather than a boolean)
// for input that can't be checked at all, so callers can tell "no" from
// "couldn't tell".
func Verify(plain, stored string) (bool, error) {
	parts, err := Parse(stored)
	if err != nil {
		return false, err
	}
	return VerifyParts(plain, parts)
}

// VerifyParts verifies plain against an already-parsed Parts value.
func VerifyParts(plain string, parts Parts) (bool, error) {
	if parts.Version != version1 {
		return false, ErrUnsupportedVersion
	}
	if parts.Iterations == 0 {
		return false, ErrMalformedInput
	}

	derived := pbkdf2.Key([]byte(plain), parts.Salt, int(parts.Iterations), hashLen, sha256.New)

	return subtle.ConstantTimeCompare(derived, parts.Hash) == 1, nil
}

// DigestForCache returns the SHA-256 digest of a presented plaintext
// password, used as half of the auth session-cache key. It is intentionally
// unrelated to the PBKDF2 hash stored for the account: the cache key is
// derived from what the caller just typed, not from the record on file.
func DigestForCache(plain string) [sha256.Size]byte {
	return sha256.Sum256([]byte(plain))
}
