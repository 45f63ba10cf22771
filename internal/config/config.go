// Package config loads and saves the CLI's settings file and applies
// MEALSUB_* environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/macros"
	"github.com/mealsub/mealsub-cli/internal/models"
)

const (
	EnvPath           = "MEALSUB_CONFIG"
	EnvAPIURL         = "MEALSUB_API_URL"
	EnvToken          = "MEALSUB_TOKEN"
	EnvUserID         = "MEALSUB_USER_ID"
	EnvWeeks          = "MEALSUB_WEEKS"
	EnvRateLimitRPS   = "MEALSUB_RATE_LIMIT_RPS"
	EnvRateLimitBurst = "MEALSUB_RATE_LIMIT_BURST"
	EnvTimeout        = "MEALSUB_TIMEOUT"
	EnvLogLevel       = "MEALSUB_LOG_LEVEL"
	EnvLogFile        = "MEALSUB_LOG_FILE"
	EnvSameCategory   = "MEALSUB_SAME_CATEGORY_SWAP"
)

type Config struct {
	APIBaseURL          string        `yaml:"api_base_url"`
	Token               string        `yaml:"token,omitempty"`
	UserID              models.ID     `yaml:"user_id,omitempty"`
	Phone               string        `yaml:"phone,omitempty"`
	Weeks               int           `yaml:"weeks,omitempty"`
	RequireSameCategory bool          `yaml:"require_same_category"`
	RateLimitRPS        float64       `yaml:"rate_limit_rps,omitempty"`
	RateLimitBurst      int           `yaml:"rate_limit_burst,omitempty"`
	Timeout             time.Duration `yaml:"timeout,omitempty"`
	LogLevel            string        `yaml:"log_level,omitempty"`
	LogFile             string        `yaml:"log_file,omitempty"`
	Goals               macros.Goals  `yaml:"goals"`
}

// Defaults is the configuration used when no file exists.
func Defaults() Config {
	return Config{
		APIBaseURL:     api.DefaultBaseURL,
		RateLimitRPS:   5,
		RateLimitBurst: 5,
		Timeout:        15 * time.Second,
		LogLevel:       "info",
		Goals:          macros.Goals{}.WithDefaults(),
	}
}

// Path is the settings file location: $MEALSUB_CONFIG, or mealsub/config.yaml
// under the user config directory.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mealsub", "config.yaml"), nil
}

// FilePath returns the settings path for display purposes.
func FilePath() string {
	path, _ := Path()
	return path
}

// Load reads the settings file, fills unset fields with defaults and applies
// the environment. A missing file is not an error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	cfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.fill(path)
	return cfg, nil
}

// readFile returns the defaults overlaid with the file at path, without
// environment overrides. A missing file is not an error.
func readFile(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Save writes the settings file, creating its directory.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// SaveSession records the logged-in user in the settings file. Values that
// came from the environment are not written.
func SaveSession(userID models.ID, phone string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	cfg.UserID, cfg.Phone = userID, phone
	return Save(cfg)
}

// Clear removes the saved session (token, user and phone) and keeps the
// other settings.
func Clear() error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return os.Remove(path)
	}
	cfg.Token, cfg.UserID, cfg.Phone = "", "", ""
	return Save(cfg)
}

func (c *Config) applyEnv() {
	c.APIBaseURL = envString(EnvAPIURL, c.APIBaseURL)
	c.Token = envString(EnvToken, c.Token)
	c.UserID = models.ID(envString(EnvUserID, string(c.UserID)))
	c.Weeks = envInt(EnvWeeks, c.Weeks)
	c.RateLimitRPS = envFloat(EnvRateLimitRPS, c.RateLimitRPS)
	c.RateLimitBurst = envInt(EnvRateLimitBurst, c.RateLimitBurst)
	c.Timeout = envDuration(EnvTimeout, c.Timeout)
	c.LogLevel = envString(EnvLogLevel, c.LogLevel)
	c.LogFile = envString(EnvLogFile, c.LogFile)
	c.RequireSameCategory = envBool(EnvSameCategory, c.RequireSameCategory)
}

// LogOff disables the log file.
const LogOff = "off"

func (c *Config) fill(path string) {
	if c.APIBaseURL == "" {
		c.APIBaseURL = api.DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Weeks < 0 {
		c.Weeks = 0
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(filepath.Dir(path), "mealsub.log")
	}
	c.Goals = c.Goals.WithDefaults()
}

// LogPath is the log file to open, or "" when logging is off.
func (c Config) LogPath() string {
	if strings.EqualFold(c.LogFile, LogOff) {
		return ""
	}
	return c.LogFile
}

// APIOptions builds client options from the settings.
func (c Config) APIOptions() api.Options {
	return api.Options{
		BaseURL:   c.APIBaseURL,
		Token:     c.Token,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimitRPS,
		Burst:     c.RateLimitBurst,
	}
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}
