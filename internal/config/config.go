package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything holdfast needs to reach the remote service and
// its companion cache agent, plus the cache tuning knobs.
type Config struct {
	APIBind     string
	AgentSocket string
	PollEvery   time.Duration

	// Cache windows; zero values take the coordinator defaults.
	StaleTime     time.Duration
	RetentionTime time.Duration
}

const (
	defaultConfigPath   = "~/.config/holdfast/config.toml"
	defaultAPIBind      = "127.0.0.1:8970"
	defaultAgentSocket  = "~/.local/share/holdfast/agent.sock"
	defaultPollInterval = 2 * time.Second
)

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBind:     defaultAPIBind,
		AgentSocket: mustExpand(defaultAgentSocket),
		PollEvery:   defaultPollInterval,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBind          string `toml:"api_bind"`
		AgentSocket      string `toml:"agent_socket"`
		PollSeconds      int    `toml:"poll_seconds"`
		StaleSeconds     int    `toml:"stale_seconds"`
		RetentionSeconds int    `toml:"retention_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if bind := strings.TrimSpace(raw.APIBind); bind != "" {
		cfg.APIBind = bind
	}
	if socket := strings.TrimSpace(raw.AgentSocket); socket != "" {
		cfg.AgentSocket = mustExpand(socket)
	}
	if raw.PollSeconds > 0 {
		cfg.PollEvery = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.StaleSeconds > 0 {
		cfg.StaleTime = time.Duration(raw.StaleSeconds) * time.Second
	}
	if raw.RetentionSeconds > 0 {
		cfg.RetentionTime = time.Duration(raw.RetentionSeconds) * time.Second
	}

	if cfg.RetentionTime > 0 && cfg.RetentionTime < cfg.StaleTime {
		return Config{}, fmt.Errorf("retention_seconds %v shorter than stale_seconds %v",
			cfg.RetentionTime, cfg.StaleTime)
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
