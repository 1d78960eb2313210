package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

const envPrefix = "GOCLAW_BRIDGE_"

// Default returns a Config with sensible defaults. ReposFolder and
// AllowedChatID are left empty; Load's validation step requires the
// former before returning.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ConfigDir:    filepath.Join(home, ".goclaw-bridge"),
		ProjectsRoot: filepath.Join(home, ".claude", "projects"),
		LLM: LLMConfig{
			Model: "claude-sonnet-4-5-20250929",
		},
		Media: MediaConfig{
			MaxDimension: 1600,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 1,
			Burst:     3,
		},
	}
}

// Load reads path as JSON5 (so operators can comment their config),
// applies defaults, overlays GOCLAW_BRIDGE_-prefixed environment
// variables, validates, and returns the result. A missing file is not
// an error — defaults plus env overlay are used instead, mirroring the
// teacher's config loader.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload re-reads path and atomically swaps the result into c, for use
// by a SIGHUP handler.
func (c *Config) Reload(path string) error {
	fresh, err := Load(path)
	if err != nil {
		return err
	}
	c.ReplaceFrom(fresh)
	return nil
}

func (c *Config) validate() error {
	if c.ReposFolder == "" {
		return fmt.Errorf("config: reposFolder is required")
	}
	if !filepath.IsAbs(c.ReposFolder) {
		return fmt.Errorf("config: reposFolder must be absolute: %q", c.ReposFolder)
	}
	if info, err := os.Stat(c.ReposFolder); err != nil || !info.IsDir() {
		return fmt.Errorf("config: reposFolder does not exist: %q", c.ReposFolder)
	}
	return nil
}

// applyEnvOverrides overlays GOCLAW_BRIDGE_-prefixed environment
// variables onto the config; env always wins over file contents.
// Secrets (tokens, API keys) are sourced this way exclusively and
// never read from the config file itself.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	envStr("TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("ANTHROPIC_API_KEY", &c.LLM.APIKey)
	envStr("MODEL", &c.LLM.Model)
	envStr("STT_BASE_URL", &c.STT.BaseURL)
	envStr("STT_API_KEY", &c.STT.APIKey)
	envStr("TTS_BASE_URL", &c.TTS.BaseURL)
	envStr("TTS_API_KEY", &c.TTS.APIKey)
	envStr("REPOS_FOLDER", &c.ReposFolder)
	envStr("CONFIG_DIR", &c.ConfigDir)
	envStr("PROJECTS_ROOT", &c.ProjectsRoot)

	if v := os.Getenv(envPrefix + "ALLOWED_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.AllowedChatID = id
		}
	}

	envStr("TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv(envPrefix + "TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv(envPrefix + "TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// Save writes cfg to path as indented JSON. Env-only secret fields
// carry json:"-" and are never persisted.
func Save(path string, cfg *Config) error {
	data, err := cfg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("config: indent: %w", err)
	}
	data = indented.Bytes()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
