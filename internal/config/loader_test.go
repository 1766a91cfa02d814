package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bidir.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "hadd", cfg.Search.Heuristic)
	assert.Equal(t, "greedy", cfg.Search.Kind)
	assert.True(t, cfg.Search.SymbolicClosed)
	assert.True(t, cfg.Search.ReopenClosed)
	assert.False(t, cfg.Search.FrontToFront)
	assert.Equal(t, "bidirectional", cfg.Search.Mode)
	assert.Equal(t, "end", cfg.Search.FrontierTarget)
	assert.Equal(t, "hmax", cfg.Search.BGGHeuristic)
	assert.Empty(t, cfg.Search.Preferred)
	assert.Zero(t, cfg.Search.MaxSteps)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  heuristic: ff
  kind: wastar
  weight: 3
  symbolic_closed: false
  time_limit: 30s
  mode: regression
  preferred: ff
  boost: 1000
  max_steps: 500
store:
  enabled: true
  path: runs.db
workers: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ff", cfg.Search.Heuristic)
	assert.Equal(t, 3, cfg.Search.Weight)
	assert.False(t, cfg.Search.SymbolicClosed)
	assert.True(t, cfg.Search.ReopenClosed, "untouched defaults survive")
	assert.Equal(t, 30*time.Second, cfg.Search.TimeLimit)
	assert.Equal(t, "regression", cfg.Search.Mode)
	assert.Equal(t, "ff", cfg.Search.Preferred)
	assert.Equal(t, 1000, cfg.Search.Boost)
	assert.Equal(t, 500, cfg.Search.MaxSteps)
	assert.Equal(t, "runs.db", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "search:\n  heuristic: ff\n")
	t.Setenv("BIDIR_SEARCH_HEURISTIC", "hmax")
	t.Setenv("BIDIR_SEARCH_FRONT_TO_FRONT", "true")
	t.Setenv("BIDIR_LOGGING_LEVEL", "debug")
	t.Setenv("BIDIR_WORKERS", "2")
	t.Setenv("BIDIR_SEARCH_MAX_STEPS", "40")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hmax", cfg.Search.Heuristic)
	assert.True(t, cfg.Search.FrontToFront)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 40, cfg.Search.MaxSteps)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")

	_, err = Load(writeConfig(t, "search:\n  heuristic: lmcut\n"))
	assert.ErrorContains(t, err, "unknown heuristic")

	_, err = Load(writeConfig(t, "workers: 0\nstore:\n  enabled: true\n  path: ''\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "store")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "search.front_to_front", envKey("BIDIR_SEARCH_FRONT_TO_FRONT"))
	assert.Equal(t, "store.path", envKey("BIDIR_STORE_PATH"))
	assert.Equal(t, "workers", envKey("BIDIR_WORKERS"))
}

func TestSearchConfig_Options(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	opts, err := cfg.Search.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 12)

	cfg.Search.Bound = 12
	opts, err = cfg.Search.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 13)

	cfg.Search.Preferred = "ff"
	cfg.Search.FrontierTarget = "bgg"
	opts, err = cfg.Search.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 16)

	cfg.Search.FrontierTarget = "top"
	cfg.Search.FrontToFront = true
	_, err = cfg.Search.Options()
	assert.NoError(t, err, "front_to_front agrees with top")
	cfg.Search.FrontierTarget = ""

	for _, bad := range []func(s *SearchConfig){
		func(s *SearchConfig) { s.Scheduling = "random" },
		func(s *SearchConfig) { s.Reevaluation = "sometimes" },
		func(s *SearchConfig) { s.CostType = "double" },
		func(s *SearchConfig) { s.Bound = -1 },
		func(s *SearchConfig) { s.Weight = 0 },
		func(s *SearchConfig) { s.Mode = "sideways" },
		func(s *SearchConfig) { s.FrontierTarget = "middle" },
		func(s *SearchConfig) { s.FrontierTarget = "bgg" }, // front_to_front is still on
		func(s *SearchConfig) { s.Preferred = "hmax" },
		func(s *SearchConfig) { s.BGGHeuristic = "lmcut" },
		func(s *SearchConfig) { s.MaxSteps = -1 },
		func(s *SearchConfig) { s.Boost = -5 },
	} {
		s := cfg.Search
		bad(&s)
		_, err := s.Options()
		assert.Error(t, err)
	}
}
