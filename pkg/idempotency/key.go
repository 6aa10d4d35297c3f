package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")

	validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

// Key is a client supplied token identifying one logical request.
type Key string

// Parse validates raw and returns it as a Key.
func Parse(raw string) (Key, error) {
	switch {
	case len(raw) < MinKeyLength:
		return "", ErrKeyTooShort
	case len(raw) > MaxKeyLength:
		return "", ErrKeyTooLong
	case !validKeyPattern.MatchString(raw):
		return "", ErrKeyInvalid
	}

	return Key(raw), nil
}

// StorageKey scopes k to a method and path. The client key is hashed so
// arbitrary input never reaches the store verbatim.
func (k Key) StorageKey(prefix, method, path string) string {
	hash := sha256.Sum256([]byte(method + ":" + path + ":" + string(k)))

	return prefix + hex.EncodeToString(hash[:])
}

func (k Key) String() string {
	return string(k)
}

// Fingerprint identifies a request payload, so a key reused with a
// different body can be told apart from a retry.
func Fingerprint(body []byte) string {
	return strconv.FormatUint(xxhash.Sum64(body), 16)
}
