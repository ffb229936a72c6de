// Package keystore keeps API credentials sealed at rest. Values are encrypted
// with XChaCha20-Poly1305 under a master key held outside the database, and
// the secret name is bound as additional data so a sealed value cannot be
// moved to another name.
package keystore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/models"
)

const (
	// ServerTokenName holds the bearer token required by the HTTP API.
	ServerTokenName = "server_token"

	// legacyKeySetting is the plaintext setting older installs stored the global key under.
	legacyKeySetting = "openai_api_key"
)

// SecretStore persists sealed values. The database package implements it.
type SecretStore interface {
	GetSecret(name string) (string, error)
	SetSecret(name, sealed string) error
	DeleteSecret(name string) error
	SecretNames() ([]string, error)
}

// SettingStore is the plaintext store consulted for legacy migration.
type SettingStore interface {
	GetSetting(key string) (string, error)
	DeleteSetting(key string) error
}

type Store struct {
	secrets SecretStore
	aead    cipher.AEAD
}

func New(secrets SecretStore, masterKey []byte) (*Store, error) {
	aead, err := chacha20poly1305.NewX(masterKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Store{secrets: secrets, aead: aead}, nil
}

// KeyName returns the secret name for a capability's API key.
func KeyName(c models.Capability) string {
	return string(c) + "_api_key"
}

// Get returns the plaintext for name, or "" if nothing is stored.
func (s *Store) Get(name string) (string, error) {
	sealed, err := s.secrets.GetSecret(name)
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	return s.open(name, sealed)
}

// Set seals and stores value. An empty value deletes the secret.
func (s *Store) Set(name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if err := s.secrets.DeleteSecret(name); err != nil {
			return fmt.Errorf("delete secret %s: %w", name, err)
		}
		return nil
	}
	sealed, err := s.seal(name, value)
	if err != nil {
		return err
	}
	if err := s.secrets.SetSecret(name, sealed); err != nil {
		return fmt.Errorf("store secret %s: %w", name, err)
	}
	return nil
}

// APIKey resolves the key used for a capability. When useGlobal is set, an
// empty capability key falls back to the global key.
func (s *Store) APIKey(c models.Capability, useGlobal bool) (string, error) {
	key, err := s.Get(KeyName(c))
	if err != nil {
		return "", err
	}
	if key != "" || c == models.CapabilityGlobal || !useGlobal {
		return key, nil
	}
	return s.Get(KeyName(models.CapabilityGlobal))
}

// Configured reports which capabilities have their own key stored.
func (s *Store) Configured() (map[models.Capability]bool, error) {
	names, err := s.secrets.SecretNames()
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	stored := make(map[string]bool, len(names))
	for _, n := range names {
		stored[n] = true
	}

	out := map[models.Capability]bool{
		models.CapabilityGlobal: stored[KeyName(models.CapabilityGlobal)],
	}
	for _, c := range models.Capabilities {
		out[c] = stored[KeyName(c)]
	}
	return out, nil
}

// ServerToken returns the API bearer token, generating one on first use.
// created is true when a new token was minted.
func (s *Store) ServerToken() (token string, created bool, err error) {
	token, err = s.Get(ServerTokenName)
	if err != nil {
		return "", false, err
	}
	if token != "" {
		return token, false, nil
	}
	token, err = s.RotateServerToken()
	return token, err == nil, err
}

// RotateServerToken replaces the API bearer token with a fresh random one.
func (s *Store) RotateServerToken() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if err := s.Set(ServerTokenName, token); err != nil {
		return "", err
	}
	return token, nil
}

// MigrateLegacy moves a plaintext global key from the settings table into the
// sealed store. An already stored global key wins and the legacy value is dropped.
func (s *Store) MigrateLegacy(settings SettingStore) error {
	legacy, err := settings.GetSetting(legacyKeySetting)
	if errors.Is(err, database.ErrNotFound) || (err == nil && legacy == "") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read legacy key: %w", err)
	}

	current, err := s.Get(KeyName(models.CapabilityGlobal))
	if err != nil {
		return err
	}
	if current == "" {
		if err := s.Set(KeyName(models.CapabilityGlobal), legacy); err != nil {
			return err
		}
		slog.Info("Migrated plaintext API key into secure store")
	}
	if err := settings.DeleteSetting(legacyKeySetting); err != nil {
		return fmt.Errorf("remove legacy key: %w", err)
	}
	return nil
}

func (s *Store) seal(name, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(name))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Store) open(name, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode secret %s: %w", name, err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", fmt.Errorf("secret %s is truncated", name)
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return "", fmt.Errorf("decrypt secret %s: %w", name, err)
	}
	return string(pt), nil
}

// GenerateToken produces a cryptographically random token
// (32 bytes, base64url-encoded, 43 characters).
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
