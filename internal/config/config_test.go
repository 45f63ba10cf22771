package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/models"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv(EnvPath, path)
	for _, k := range []string{EnvAPIURL, EnvToken, EnvUserID, EnvWeeks, EnvRateLimitRPS, EnvRateLimitBurst, EnvTimeout, EnvLogLevel, EnvLogFile, EnvSameCategory} {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	path := useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, api.DefaultBaseURL, cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 2000.0, cfg.Goals.Calories)
	assert.False(t, cfg.RequireSameCategory)
	assert.Zero(t, cfg.Weeks)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "mealsub.log"), cfg.LogPath())
}

func TestLogOff(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvLogFile, "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LogPath())
}

func TestSaveLoadClear(t *testing.T) {
	path := useTempConfig(t)

	cfg := Defaults()
	cfg.Token = "secret"
	cfg.UserID = "42"
	cfg.Phone = "+15550100"
	cfg.RequireSameCategory = true
	cfg.Goals.Protein = 180
	require.NoError(t, Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Token)
	assert.Equal(t, models.ID("42"), got.UserID)
	assert.True(t, got.RequireSameCategory)
	assert.Equal(t, 180.0, got.Goals.Protein)
	assert.Equal(t, 15*time.Second, got.Timeout)

	require.NoError(t, Clear())
	got, err = Load()
	require.NoError(t, err)
	assert.Empty(t, got.Token)
	assert.Empty(t, got.UserID)
	assert.True(t, got.RequireSameCategory)
}

func TestSaveSessionSkipsEnvironment(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("weeks: 2\n"), 0600))
	t.Setenv(EnvToken, "env-secret")
	t.Setenv(EnvAPIURL, "http://env.example")

	require.NoError(t, SaveSession("42", "+15550100"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-secret")
	assert.NotContains(t, string(data), "env.example")
	assert.NotContains(t, string(data), "mealsub.log")

	t.Setenv(EnvToken, "")
	t.Setenv(EnvAPIURL, "")
	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), got.UserID)
	assert.Equal(t, "+15550100", got.Phone)
	assert.Equal(t, 2, got.Weeks)
	assert.Empty(t, got.Token)
	assert.Equal(t, api.DefaultBaseURL, got.APIBaseURL)
}

func TestClearWithoutFile(t *testing.T) {
	useTempConfig(t)
	assert.NoError(t, Clear())
}

func TestYAMLFile(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://meals.example.com/api
user_id: 7
weeks: 2
timeout: 3s
goals:
  calories: 1800
`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://meals.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, models.ID("7"), cfg.UserID)
	assert.Equal(t, 2, cfg.Weeks)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 1800.0, cfg.Goals.Calories)
	assert.Equal(t, 150.0, cfg.Goals.Protein)
}

func TestMalformedYAML(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("weeks: [oops"), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvAPIURL, "http://staging/api")
	t.Setenv(EnvUserID, "99")
	t.Setenv(EnvWeeks, "12")
	t.Setenv(EnvRateLimitRPS, "0.5")
	t.Setenv(EnvTimeout, "30")
	t.Setenv(EnvSameCategory, "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://staging/api", cfg.APIBaseURL)
	assert.Equal(t, models.ID("99"), cfg.UserID)
	assert.Equal(t, 12, cfg.Weeks)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.RequireSameCategory)

	opts := cfg.APIOptions()
	assert.Equal(t, "http://staging/api", opts.BaseURL)
	assert.Equal(t, 0.5, opts.RateLimit)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MEALSUB_TEST_INT", "x")
	assert.Equal(t, 3, envInt("MEALSUB_TEST_INT", 3))
	t.Setenv("MEALSUB_TEST_BOOL", "off")
	assert.False(t, envBool("MEALSUB_TEST_BOOL", true))
	t.Setenv("MEALSUB_TEST_BOOL", "maybe")
	assert.True(t, envBool("MEALSUB_TEST_BOOL", true))
	t.Setenv("MEALSUB_TEST_DUR", "1m")
	assert.Equal(t, time.Minute, envDuration("MEALSUB_TEST_DUR", 0))
}
