// Package config handles loading and parsing Holdfast configuration files.
//
// # Overview
//
// This package reads Holdfast's TOML configuration to discover the workboard
// API endpoint, the cache agent's socket, and the cache tuning windows. All
// fields are optional; a missing config file is not an error.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/holdfast/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/holdfast/config.toml
//   - API endpoint: 127.0.0.1:8970
//   - Agent socket: ~/.local/share/holdfast/agent.sock
//   - Poll interval: 2 seconds
//   - Cache windows: coordinator defaults (30s stale, 5m retention)
//
// # TOML Format
//
// Example config.toml:
//
//	api_bind = "127.0.0.1:8970"
//	agent_socket = "~/.local/share/holdfast/agent.sock"
//	poll_seconds = 2
//	stale_seconds = 30
//	retention_seconds = 300
//
// Tilde expansion is performed automatically on path fields.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - A retention window shorter than the stale window
//
// Missing config files are NOT an error - defaults are used instead.
// This allows Holdfast to work out-of-the-box without configuration.
package config
