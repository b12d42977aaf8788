// Package seal derives keys from passwords and seals byte blobs with
// XChaCha20-Poly1305. Sealed blobs are nonce || ciphertext || tag.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	SaltSize  = 16
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSizeX
	Overhead  = chacha20poly1305.Overhead

	paramsAlgorithm = "argon2id"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidKey           = errors.New("invalid key size")
	ErrInvalidParams        = errors.New("invalid kdf parameters")
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

var DefaultParams = Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

func (p Params) Validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, p)
	}

	return nil
}

// AtLeast reports whether every cost in p is at least as high as in floor.
func (p Params) AtLeast(floor Params) bool {
	return p.Time >= floor.Time && p.MemoryKiB >= floor.MemoryKiB && p.Threads >= floor.Threads
}

func (p Params) String() string {
	return fmt.Sprintf("%s;t=%d;m=%d;p=%d", paramsAlgorithm, p.Time, p.MemoryKiB, p.Threads)
}

func ParseParams(raw string) (Params, error) {
	fields := strings.Split(strings.TrimSpace(raw), ";")
	if len(fields) != 4 || fields[0] != paramsAlgorithm {
		return Params{}, fmt.Errorf("%w: %q", ErrInvalidParams, raw)
	}

	var p Params
	for _, field := range fields[1:] {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidParams, raw)
		}

		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %q: %v", ErrInvalidParams, raw, err)
		}

		switch name {
		case "t":
			p.Time = uint32(n)
		case "m":
			p.MemoryKiB = uint32(n)
		case "p":
			if n > 255 {
				return Params{}, fmt.Errorf("%w: parallelism %d", ErrInvalidParams, n)
			}
			p.Threads = uint8(n)
		default:
			return Params{}, fmt.Errorf("%w: unknown field %q", ErrInvalidParams, name)
		}
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}

	return p, nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return salt, nil
}

// DeriveKey stretches password into a KeySize key. An empty salt is replaced by
// a fresh random one; the salt used is always returned so it can be stored.
func DeriveKey(password string, salt []byte, params Params) ([]byte, []byte, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	if len(salt) == 0 {
		fresh, err := NewSalt()
		if err != nil {
			return nil, nil, err
		}
		salt = fresh
	}

	key := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Threads, KeySize)
	return key, salt, nil
}

func Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, NonceSize, NonceSize+len(plaintext)+Overhead)
	if _, err := rand.Read(blob); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(blob, blob[:NonceSize], plaintext, nil), nil
}

func Decrypt(blob, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < NonceSize+Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrAuthenticationFailed)
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init xchacha20-poly1305: %w", err)
	}

	return aead, nil
}
