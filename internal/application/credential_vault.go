package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

const (
	DefaultPasswordLength = 16

	credentialKeyPrefix = "ryxsurf/credentials"
	domainsIndexKey     = credentialKeyPrefix + "/_domains"
	usersIndexName      = "_users"
)

const (
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	passwordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

type Credential struct {
	Domain   string
	Username string
	Password string
	Created  time.Time
	LastUsed time.Time
}

type credentialValue struct {
	Username string    `toml:"username"`
	Password string    `toml:"password"`
	Created  time.Time `toml:"created"`
	LastUsed time.Time `toml:"last_used"`
}

type keyIndex struct {
	Entries []string `toml:"entries"`
}

// CredentialVault stores site credentials in a secret backend. Secret stores
// only offer key lookups, so the vault keeps a domain index and one user index
// per domain next to the credentials.
type CredentialVault struct {
	store ports.SecretStore
	mu    sync.Mutex
	settings
}

func NewCredentialVault(store ports.SecretStore, opts ...Option) *CredentialVault {
	return &CredentialVault{store: store, settings: newSettings(opts)}
}

func (v *CredentialVault) Save(ctx context.Context, domain, username, password string) error {
	domain = normalizeDomain(domain)
	if err := validateCredentialParts(domain, username); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now().UTC().Round(0)
	value := credentialValue{Username: username, Password: password, Created: now, LastUsed: now}
	if existing, err := v.load(ctx, domain, username); err == nil {
		value.Created = existing.Created
	} else if !errors.Is(err, ErrCredentialNotFound) {
		return err
	}

	if err := v.put(ctx, credentialKey(domain, username), value); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if err := v.addToIndex(ctx, usersIndexKey(domain), username); err != nil {
		return err
	}
	if err := v.addToIndex(ctx, domainsIndexKey, domain); err != nil {
		return err
	}

	v.logger.Debug().Str("domain", domain).Msg("credential saved")

	return nil
}

// Get returns every credential stored for domain, most recently used first.
func (v *CredentialVault) Get(ctx context.Context, domain string) ([]Credential, error) {
	domain = normalizeDomain(domain)

	v.mu.Lock()
	defer v.mu.Unlock()

	users, err := v.index(ctx, usersIndexKey(domain))
	if err != nil {
		return nil, err
	}

	credentials := make([]Credential, 0, len(users))
	for _, username := range users {
		value, err := v.load(ctx, domain, username)
		if errors.Is(err, ErrCredentialNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, value.credential(domain))
	}

	slices.SortStableFunc(credentials, func(a, b Credential) int {
		return b.LastUsed.Compare(a.LastUsed)
	})

	return credentials, nil
}

// GetOne returns the most recently used credential for domain.
func (v *CredentialVault) GetOne(ctx context.Context, domain string) (Credential, error) {
	credentials, err := v.Get(ctx, domain)
	if err != nil {
		return Credential{}, err
	}
	if len(credentials) == 0 {
		return Credential{}, fmt.Errorf("%w: %s", ErrCredentialNotFound, normalizeDomain(domain))
	}
	return credentials[0], nil
}

// Touch records a use of the credential.
func (v *CredentialVault) Touch(ctx context.Context, domain, username string) error {
	domain = normalizeDomain(domain)

	v.mu.Lock()
	defer v.mu.Unlock()

	value, err := v.load(ctx, domain, username)
	if err != nil {
		return err
	}
	value.LastUsed = v.clock.Now().UTC().Round(0)

	if err := v.put(ctx, credentialKey(domain, username), value); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (v *CredentialVault) Delete(ctx context.Context, domain, username string) error {
	domain = normalizeDomain(domain)
	if err := validateCredentialParts(domain, username); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Delete(ctx, credentialKey(domain, username)); err != nil && !errors.Is(err, ports.ErrSecretNotFound) {
		return fmt.Errorf("delete credential: %w", err)
	}

	remaining, err := v.removeFromIndex(ctx, usersIndexKey(domain), username)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if _, err := v.removeFromIndex(ctx, domainsIndexKey, domain); err != nil {
			return err
		}
	}

	return nil
}

func (v *CredentialVault) Domains(ctx context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.index(ctx, domainsIndexKey)
}

func (v *CredentialVault) load(ctx context.Context, domain, username string) (credentialValue, error) {
	raw, err := v.store.Get(ctx, credentialKey(domain, username))
	if err != nil {
		if errors.Is(err, ports.ErrSecretNotFound) {
			return credentialValue{}, fmt.Errorf("%w: %s@%s", ErrCredentialNotFound, username, domain)
		}
		return credentialValue{}, fmt.Errorf("load credential: %w", err)
	}

	var value credentialValue
	if err := toml.Unmarshal([]byte(raw), &value); err != nil {
		return credentialValue{}, fmt.Errorf("decode credential: %w", err)
	}

	return value, nil
}

func (v *CredentialVault) put(ctx context.Context, key string, value any) error {
	encoded, err := toml.Marshal(value)
	if err != nil {
		return err
	}
	return v.store.Put(ctx, key, string(encoded))
}

func (v *CredentialVault) index(ctx context.Context, key string) ([]string, error) {
	raw, err := v.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrSecretNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load index %s: %w", key, err)
	}

	var index keyIndex
	if err := toml.Unmarshal([]byte(raw), &index); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	if index.Entries == nil {
		index.Entries = []string{}
	}

	return index.Entries, nil
}

func (v *CredentialVault) addToIndex(ctx context.Context, key, entry string) error {
	entries, err := v.index(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(entries, entry) {
		return nil
	}

	entries = append(entries, entry)
	slices.Sort(entries)
	if err := v.put(ctx, key, keyIndex{Entries: entries}); err != nil {
		return fmt.Errorf("store index %s: %w", key, err)
	}
	return nil
}

func (v *CredentialVault) removeFromIndex(ctx context.Context, key, entry string) (int, error) {
	entries, err := v.index(ctx, key)
	if err != nil {
		return 0, err
	}

	position := slices.Index(entries, entry)
	if position < 0 {
		return len(entries), nil
	}
	entries = slices.Delete(entries, position, position+1)

	if len(entries) == 0 {
		if err := v.store.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrSecretNotFound) {
			return 0, fmt.Errorf("delete index %s: %w", key, err)
		}
		return 0, nil
	}
	if err := v.put(ctx, key, keyIndex{Entries: entries}); err != nil {
		return 0, fmt.Errorf("store index %s: %w", key, err)
	}

	return len(entries), nil
}

func (c credentialValue) credential(domain string) Credential {
	return Credential{
		Domain:   domain,
		Username: c.Username,
		Password: c.Password,
		Created:  c.Created,
		LastUsed: c.LastUsed,
	}
}

func credentialKey(domain, username string) string {
	return credentialKeyPrefix + "/" + domain + "/" + username
}

func usersIndexKey(domain string) string {
	return credentialKeyPrefix + "/" + domain + "/" + usersIndexName
}

func validateCredentialParts(domain, username string) error {
	for _, part := range []string{domain, username} {
		if part == "" || strings.ContainsAny(part, "/\\") || strings.HasPrefix(part, "_") || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidCredentialPart, part)
		}
	}
	return nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ExtractDomain returns the host of rawURL without port. Bare hosts are
// accepted.
func ExtractDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return normalizeDomain(parsed.Hostname())
}

// GeneratePassword returns a random password drawn from letters and digits,
// plus symbols when requested. A non-positive length selects the default.
func GeneratePassword(length int, symbols bool) (string, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}

	charset := passwordLetters
	if symbols {
		charset += passwordSymbols
	}

	limit := big.NewInt(int64(len(charset)))
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(charset[n.Int64()])
	}

	return b.String(), nil
}
