// Package config loads and holds the bridge's process configuration:
// the repos root the session picker launches into, the allowlisted
// chat, and the optional LLM/media/STT/TTS/telemetry collaborators.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
)

// Config is the root configuration for the bridge.
type Config struct {
	ReposFolder   string `json:"reposFolder"`
	AllowedChatID int64  `json:"allowedChatId,omitempty"`

	// ConfigDir holds the bridge's own small on-disk state (attached
	// marker, permission request/response files, polish-voice flag,
	// staged images, chat-id cache). ProjectsRoot is where the agent
	// writes per-project transcript directories.
	ConfigDir    string `json:"configDir,omitempty"`
	ProjectsRoot string `json:"projectsRoot,omitempty"`

	Telegram  TelegramConfig  `json:"telegram"`
	LLM       LLMConfig       `json:"llm,omitempty"`
	Media     MediaConfig     `json:"media,omitempty"`
	STT       STTConfig       `json:"stt,omitempty"`
	TTS       TTSConfig       `json:"tts,omitempty"`
	RateLimit RateLimitConfig `json:"rateLimit,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// TelegramConfig configures the Telegram chat surface. Token is
// sourced from the environment only and never persisted to disk.
type TelegramConfig struct {
	Token string `json:"-"`
}

// LLMConfig configures the Anthropic-backed Polish/Summary clients.
// APIKey is env-only.
type LLMConfig struct {
	APIKey string `json:"-"`
	Model  string `json:"model,omitempty"`
}

// MediaConfig bounds the image re-encode pipeline.
type MediaConfig struct {
	MaxDimension int `json:"maxDimension,omitempty"`
}

// STTConfig configures the speech-to-text HTTP collaborator.
type STTConfig struct {
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"-"`
}

// TTSConfig configures the text-to-speech HTTP collaborator.
type TTSConfig struct {
	BaseURL string `json:"baseUrl,omitempty"`
	APIKey  string `json:"-"`
}

// RateLimitConfig bounds outbound chat-surface calls per chat.
type RateLimitConfig struct {
	PerSecond float64 `json:"perSecond,omitempty"`
	Burst     int     `json:"burst,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export for turn spans. When
// Enabled is false, internal/tracing returns a no-op tracer.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"serviceName,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ReplaceFrom copies all data fields from src into c, preserving c's
// mutex, for use by Reload's atomic swap.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReplaceFromLocked(src)
}

// Snapshot returns a copy of the config safe to read without further
// locking.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var cp Config
	cp.ReplaceFromLocked(c)
	return cp
}

// ReplaceFromLocked copies all data fields from src into c without
// taking src's lock, for callers that already hold it (Snapshot).
func (c *Config) ReplaceFromLocked(src *Config) {
	c.ReposFolder = src.ReposFolder
	c.AllowedChatID = src.AllowedChatID
	c.ConfigDir = src.ConfigDir
	c.ProjectsRoot = src.ProjectsRoot
	c.Telegram = src.Telegram
	c.LLM = src.LLM
	c.Media = src.Media
	c.STT = src.STT
	c.TTS = src.TTS
	c.RateLimit = src.RateLimit
	c.Telemetry = src.Telemetry
}

// MarshalJSON excludes the mutex and any env-only secret fields (which
// already carry json:"-") from the persisted form.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal((*alias)(c))
}

// Hash returns the first 8 bytes, hex-encoded, of the SHA-256 digest of
// the persisted (non-secret) config,
// useful for detecting on-disk drift without comparing full structs.
func (c *Config) Hash() (string, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("config: hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8]), nil
}
