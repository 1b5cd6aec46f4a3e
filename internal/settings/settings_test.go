package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tournament.yaml", s.Tournament)
	assert.Equal(t, Database{Driver: "sqlite", DSN: "kickoff.db"}, s.Database)
	assert.Equal(t, Log{Level: "info", Format: "console"}, s.Log)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kickoff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tournament: cup.yaml
db:
  driver: postgres
  dsn: postgres://localhost/kickoff?sslmode=disable
log:
  level: debug
  format: json
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cup.yaml", s.Tournament)
	assert.Equal(t, "postgres", s.Database.Driver)
	assert.Equal(t, "postgres://localhost/kickoff?sslmode=disable", s.Database.DSN)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, s.Log)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kickoff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  dsn: file.db\n"), 0o644))
	t.Setenv("KICKOFF_DB_DSN", "env.db")
	t.Setenv("KICKOFF_LOG_LEVEL", "warn")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", s.Database.DSN)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("KICKOFF_DB_DRIVER", "mysql")
		_, err := Load("")
		assert.ErrorContains(t, err, "db.driver must be sqlite or postgres")
	})

	t.Run("unknown log format", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("KICKOFF_LOG_FORMAT", "xml")
		_, err := Load("")
		assert.ErrorContains(t, err, "log.format must be console or json")
	})
}
