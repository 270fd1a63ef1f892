package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knoldeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(flags(t))
	require.NoError(t, err)
	assert.Equal(t, "knoldeck.db", cfg.DB.Path)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Study.DailyGoal)
	assert.Equal(t, "repos", cfg.Sync.ReposDir)
	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 2.5, cfg.Scheduler.InitialEasinessFactor)
	assert.Equal(t, 1.3, cfg.Scheduler.MinEasinessFactor)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
db:
  path: from-file.db
log:
  level: debug
study:
  daily_goal: 50
sync:
  interval: 30m
`)
	t.Setenv("KNOLDECK_LOG__LEVEL", "warn")
	t.Setenv("KNOLDECK_STUDY__DAILY_GOAL", "10")

	cfg, err := Load(flags(t, "--config", path, "--daily-goal", "5"))
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DB.Path, "file overrides default")
	assert.Equal(t, "warn", cfg.Log.Level, "env overrides file")
	assert.Equal(t, 5, cfg.Study.DailyGoal, "flag overrides env")
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
}

func TestLoadUnchangedFlagDoesNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KNOLDECK_DB__PATH", "env.db")

	cfg, err := Load(flags(t))
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DB.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(flags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"negative goal", "study:\n  daily_goal: -1\n"},
		{"ef floor below 1.3", "scheduler:\n  min_easiness_factor: 1.0\n  initial_easiness_factor: 2.5\n"},
		{"initial below floor", "scheduler:\n  min_easiness_factor: 2.0\n  initial_easiness_factor: 1.5\n"},
		{"empty db path", "db:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(flags(t, "--config", writeConfig(t, tt.yaml)))
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestSchedulerParams(t *testing.T) {
	p := SchedulerConfig{InitialEasinessFactor: 2.7, MinEasinessFactor: 1.4}.Params()
	assert.Equal(t, 2.7, p.InitialEasinessFactor)
	assert.Equal(t, 1.4, p.MinEasinessFactor)
	assert.Equal(t, 1, p.FirstInterval)
	assert.Equal(t, 6, p.SecondInterval)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "sync.repos_dir", envKey("KNOLDECK_SYNC__REPOS_DIR"))
	assert.Equal(t, "db.path", envKey("KNOLDECK_DB__PATH"))
}
