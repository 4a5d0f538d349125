package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netmove.toml")
	require.NoError(t, SaveDefault(path))
	require.Error(t, SaveDefault(path), "existing files are not overwritten")

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultSettings(), s)
	require.Equal(t, 64, s.PredictionConfig().BufferSize)
	require.Equal(t, float32(800), s.ExecutorOptions().Bounds.MaxCustomSpeed)
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netmove.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Bounds]\nMaxCustomSpeed = 600.0\n\n[Log]\nLevel = \"debug\"\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, float32(600), s.Bounds.MaxCustomSpeed)

	log, err := s.Logger()
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
