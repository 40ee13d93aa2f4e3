package common

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/crypto"
)

func TestLoadOrGenerateKeyPersists(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "hotkey")

	key, err := LoadOrGenerateKey("", keyFile)
	require.NoError(t, err)

	// A second load returns the same identity.
	again, err := LoadOrGenerateKey("", keyFile)
	require.NoError(t, err)
	assert.Equal(t, key.Address(), again.Address())

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKeyFromHex(t *testing.T) {
	_, generated, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	key, err := LoadOrGenerateKey(hex.EncodeToString(generated.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, generated.Address(), key.Address())

	_, err = LoadOrGenerateKey("zz-not-hex", "")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: debug\nformat: json\n"), 0o644))

	var cfg LogConfig
	require.NoError(t, LoadYAML(path, &cfg))
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	assert.Error(t, LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
}
