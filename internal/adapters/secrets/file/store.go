package file

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/Tobito320/ryxsurf/internal/seal"
)

const (
	storeDirMode  = 0o700
	secretFileMod = 0o600

	secretExt       = ".sealed"
	keyFileName     = ".vault-key.toml"
	tempFilePattern = ".secret-*.tmp"
)

type keySchema struct {
	Salt      string `toml:"salt"`
	KDFParams string `toml:"kdf_params"`
}

// Store keeps one sealed file per secret under root. Values are encrypted
// with a key derived from the master password.
type Store struct {
	root string
	key  []byte
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string, key []byte) *Store {
	return &Store{root: filepath.Clean(root), key: key}
}

// Open derives the store key from password. The salt and KDF parameters are
// kept next to the secrets so later opens derive the same key.
func Open(root, password string, params seal.Params) (*Store, error) {
	root = filepath.Clean(root)
	keyPath := filepath.Join(root, keyFileName)

	data, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		var schema keySchema
		if err := toml.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("decode vault key file: %w", err)
		}
		salt, err := hex.DecodeString(schema.Salt)
		if err != nil {
			return nil, fmt.Errorf("decode vault salt: %w", err)
		}
		stored, err := seal.ParseParams(schema.KDFParams)
		if err != nil {
			return nil, err
		}
		key, _, err := seal.DeriveKey(password, salt, stored)
		if err != nil {
			return nil, fmt.Errorf("derive vault key: %w", err)
		}
		return NewStore(root, key), nil
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read vault key file: %w", err)
	}

	key, salt, err := seal.DeriveKey(password, nil, params)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	encoded, err := toml.Marshal(keySchema{Salt: hex.EncodeToString(salt), KDFParams: params.String()})
	if err != nil {
		return nil, fmt.Errorf("encode vault key file: %w", err)
	}

	store := NewStore(root, key)
	if err := store.writeAtomic(keyPath, encoded); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	sealed, err := seal.Encrypt([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("seal file secret %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(path, sealed); err != nil {
		return fmt.Errorf("write file secret %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file secret %q: %w", key, ports.ErrSecretNotFound)
		}
		return "", fmt.Errorf("read file secret %q: %w", key, err)
	}

	plain, err := seal.Decrypt(data, s.key)
	if err != nil {
		return "", fmt.Errorf("open file secret %q: %w", key, err)
	}

	return string(plain), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file secret %q: %w", key, err)
	}

	return nil
}

func (s *Store) pathForKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("secret key is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid secret key %q", key)
	}

	return filepath.Join(s.root, cleaned+secretExt), nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create file secret directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp secret file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp secret file: %w", err)
	}
	if err := tempFile.Chmod(secretFileMod); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp secret file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp secret file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace secret file: %w", err)
	}
	cleanup = false

	return nil
}
