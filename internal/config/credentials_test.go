package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAPIKeyWritesOwnerOnlyFile(t *testing.T) {
	home := isolate(t)

	require.NoError(t, SetAPIKey("Bearer  gsk_abc ", "groq"))

	p := filepath.Join(home, ".pantry", "credentials.json")
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cred, err := LoadCredential()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "gsk_abc", cred.APIKey)
	assert.Equal(t, "groq", cred.Provider)
	assert.Equal(t, "file", cred.Source)
}

func TestSetAPIKeyRejectsEmpty(t *testing.T) {
	isolate(t)
	assert.Error(t, SetAPIKey("   ", "groq"))
}

func TestSetAPIKeyProvider(t *testing.T) {
	home := isolate(t)

	assert.ErrorContains(t, SetAPIKey("k", "bogus"), `unknown provider "bogus"`)
	_, err := os.Stat(filepath.Join(home, ".pantry", "credentials.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, SetAPIKey("k", " Gemini "))
	cred, err := LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cred.Provider)
}

func TestLoadCredentialNormalizesProvider(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".pantry")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"),
		[]byte(`{"api_key":"k","provider":"Gemini"}`), 0o600))

	cred, err := LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cred.Provider)
}

func TestDeleteAPIKey(t *testing.T) {
	isolate(t)
	require.NoError(t, DeleteAPIKey(), "missing file is fine")

	require.NoError(t, SetAPIKey("k", ""))
	require.NoError(t, DeleteAPIKey())

	cred, err := LoadCredential()
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestResolveAPIKeyPrefersConfig(t *testing.T) {
	isolate(t)
	require.NoError(t, SetAPIKey("from-file", "gemini"))

	cfg := DefaultConfig()
	cfg.Recipe.APIKey = "bearer from-env"
	cred, err := cfg.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "config", cred.Source)
	assert.Equal(t, "from-env", cfg.Recipe.APIKey)
	assert.Equal(t, "groq", cfg.Recipe.Provider)
}

func TestResolveAPIKeyFallsBackToFile(t *testing.T) {
	isolate(t)
	require.NoError(t, SetAPIKey("from-file", "gemini"))

	cfg := DefaultConfig()
	cred, err := cfg.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "file", cred.Source)
	assert.Equal(t, "from-file", cfg.Recipe.APIKey)
	assert.Equal(t, "gemini", cfg.Recipe.Provider)
}

func TestResolveAPIKeyNone(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cred, err := cfg.ResolveAPIKey()
	require.NoError(t, err)
	assert.Nil(t, cred)
	assert.Empty(t, cfg.Recipe.APIKey)
}
