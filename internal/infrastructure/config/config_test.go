package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osidra/reclaim/internal/domain/services"
)

func TestLoad_MissingConfigSuggestsInit(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reclaim init")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.SQLite.Path = "custom/engine.db"
	cfg.Engine.RetentionWindow = 48 * time.Hour
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom/engine.db", loaded.SQLite.Path)
	assert.Equal(t, 48*time.Hour, loaded.Engine.RetentionWindow)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, time.Hour, loaded.Engine.ReaperInterval)
	assert.Equal(t, 10*time.Second, loaded.Engine.LockTimeout)
}

func TestLoad_EnvOverridesDBPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Default().Save(dir))

	t.Setenv("RECLAIM_DB_PATH", "/tmp/override.db")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.SQLite.Path)
}

func TestSchema_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveSchema(dir, StarterSchema()))

	loaded, err := LoadSchema(dir)
	require.NoError(t, err)
	assert.Equal(t, StarterSchema().Types, loaded.Types)
}

func TestLoadSchema_MissingFileSuggestsInit(t *testing.T) {
	_, err := LoadSchema(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reclaim init")
}

func TestLoadSchema_EmptySchemaRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveSchema(dir, &Schema{}))

	_, err := LoadSchema(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entity types")
}

func TestStarterSchema_PassesRegistryValidation(t *testing.T) {
	_, err := services.NewRegistry(StarterSchema().Types)
	assert.NoError(t, err)
}
