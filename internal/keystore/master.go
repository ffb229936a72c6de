package keystore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/database"
)

const (
	masterKeyAccount = "master_key"
	saltSetting      = "keystore_salt"
	keyLen           = 32
	pbkdf2Iterations = 100000
)

// SaltStore persists the passphrase salt. It is not secret.
type SaltStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// MasterKey returns the key that seals every stored secret. If the configured
// passphrase variable is set, the key is derived from it with PBKDF2;
// otherwise a random key is kept in the OS keyring under the configured service.
func MasterKey(cfg config.KeystoreConfig, salts SaltStore) ([]byte, error) {
	if cfg.PassphraseEnv != "" {
		if pass := os.Getenv(cfg.PassphraseEnv); pass != "" {
			return passphraseKey(pass, salts)
		}
	}
	return keyringKey(cfg.Service)
}

func passphraseKey(passphrase string, salts SaltStore) ([]byte, error) {
	encoded, err := salts.GetSetting(saltSetting)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("read keystore salt: %w", err)
	}

	var salt []byte
	if encoded == "" {
		salt = make([]byte, 32)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		if err := salts.SetSetting(saltSetting, base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("store keystore salt: %w", err)
		}
	} else {
		salt, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode keystore salt: %w", err)
		}
	}

	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyLen, sha256.New), nil
}

func keyringKey(service string) ([]byte, error) {
	encoded, err := keyring.Get(service, masterKeyAccount)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode master key: %w", err)
		}
		if len(key) != keyLen {
			return nil, fmt.Errorf("master key has length %d, want %d", len(key), keyLen)
		}
		return key, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("read master key from OS keyring (set a passphrase variable to avoid the keyring): %w", err)
	}

	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	if err := keyring.Set(service, masterKeyAccount, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("store master key in OS keyring: %w", err)
	}
	slog.Info("Generated new master key", "service", service)
	return key, nil
}
