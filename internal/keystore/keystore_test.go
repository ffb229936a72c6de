package keystore

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/thinkscotty/postmuse/internal/config"
	"github.com/thinkscotty/postmuse/internal/database"
	"github.com/thinkscotty/postmuse/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T, db *database.DB) *Store {
	t.Helper()
	s, err := New(db, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

func TestRoundTripNeverStoresPlaintext(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	require.NoError(t, s.Set(KeyName(models.CapabilityVision), "sk-vision-secret"))

	raw, err := db.GetSecret("vision_api_key")
	require.NoError(t, err)
	assert.NotContains(t, raw, "sk-vision-secret")

	got, err := s.Get("vision_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-vision-secret", got)

	missing, err := s.Get("response_api_key")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSealedValueBoundToName(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	require.NoError(t, s.Set("vision_api_key", "sk-abc"))
	raw, err := db.GetSecret("vision_api_key")
	require.NoError(t, err)
	require.NoError(t, db.SetSecret("global_api_key", raw))

	_, err = s.Get("global_api_key")
	assert.Error(t, err, "a sealed value copied under another name must not open")
}

func TestWrongMasterKeyFails(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)
	require.NoError(t, s.Set("global_api_key", "sk-abc"))

	other, err := New(db, bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	_, err = other.Get("global_api_key")
	assert.Error(t, err)
}

func TestSetEmptyDeletes(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	require.NoError(t, s.Set("global_api_key", "sk-abc"))
	require.NoError(t, s.Set("global_api_key", "   "))

	_, err := db.GetSecret("global_api_key")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestAPIKeyFallback(t *testing.T) {
	s := newTestStore(t, newTestDB(t))
	require.NoError(t, s.Set(KeyName(models.CapabilityGlobal), "sk-global"))
	require.NoError(t, s.Set(KeyName(models.CapabilityVision), "sk-vision"))

	tests := []struct {
		name      string
		cap       models.Capability
		useGlobal bool
		want      string
	}{
		{"own key wins", models.CapabilityVision, true, "sk-vision"},
		{"own key without fallback", models.CapabilityVision, false, "sk-vision"},
		{"falls back to global", models.CapabilityResponse, true, "sk-global"},
		{"no fallback when disabled", models.CapabilityResponse, false, ""},
		{"global itself", models.CapabilityGlobal, false, "sk-global"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.APIKey(tt.cap, tt.useGlobal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	configured, err := s.Configured()
	require.NoError(t, err)
	assert.True(t, configured[models.CapabilityGlobal])
	assert.True(t, configured[models.CapabilityVision])
	assert.False(t, configured[models.CapabilityPostGeneration])
}

func TestServerToken(t *testing.T) {
	s := newTestStore(t, newTestDB(t))

	tok, created, err := s.ServerToken()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, tok, 43)

	again, created, err := s.ServerToken()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, tok, again)

	rotated, err := s.RotateServerToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, rotated)
}

func TestMigrateLegacy(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)

	require.NoError(t, s.MigrateLegacy(db), "nothing to migrate")

	require.NoError(t, db.SetSetting("openai_api_key", "sk-legacy"))
	require.NoError(t, s.MigrateLegacy(db))

	got, err := s.Get("global_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", got)

	_, err = db.GetSetting("openai_api_key")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestMigrateLegacyKeepsExistingKey(t *testing.T) {
	db := newTestDB(t)
	s := newTestStore(t, db)
	require.NoError(t, s.Set("global_api_key", "sk-current"))
	require.NoError(t, db.SetSetting("openai_api_key", "sk-legacy"))

	require.NoError(t, s.MigrateLegacy(db))

	got, err := s.Get("global_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-current", got)
}

func TestMasterKeyFromKeyring(t *testing.T) {
	keyring.MockInit()
	db := newTestDB(t)
	cfg := config.KeystoreConfig{Service: "postmuse-test", PassphraseEnv: "POSTMUSE_TEST_PASSPHRASE"}
	t.Setenv("POSTMUSE_TEST_PASSPHRASE", "")

	first, err := MasterKey(cfg, db)
	require.NoError(t, err)
	assert.Len(t, first, 32)

	second, err := MasterKey(cfg, db)
	require.NoError(t, err)
	assert.Equal(t, first, second, "the keyring key is generated once")
}

func TestMasterKeyFromPassphrase(t *testing.T) {
	db := newTestDB(t)
	cfg := config.KeystoreConfig{Service: "postmuse-test", PassphraseEnv: "POSTMUSE_TEST_PASSPHRASE"}
	t.Setenv("POSTMUSE_TEST_PASSPHRASE", "correct horse battery staple")

	first, err := MasterKey(cfg, db)
	require.NoError(t, err)
	second, err := MasterKey(cfg, db)
	require.NoError(t, err)
	assert.Equal(t, first, second, "the salt is persisted")

	salt, err := db.GetSetting("keystore_salt")
	require.NoError(t, err)
	assert.False(t, strings.Contains(salt, "correct horse"))

	t.Setenv("POSTMUSE_TEST_PASSPHRASE", "another passphrase")
	third, err := MasterKey(cfg, db)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}
