// Package config provides 12-factor configuration management for periphery.
//
// Configuration is loaded from environment variables with sensible defaults,
// or from a TOML/YAML file layered over Default.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: Computer and monitor dimensions
//   - Filesystem: Mount capacity, open file limit, allowed host roots
//   - Persistence: Snapshot directory
//   - Script: Default language and execution timeout
//   - Render: Redraw throttle
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - MONITORS, MONITOR_WIDTH, MONITOR_HEIGHT, MONITOR_COLOUR
//   - MOUNT_CAPACITY, COMPUTER_SPACE, DATA_DIR, MAX_OPEN_FILES, MOUNT_ROOTS
//   - PERSIST_ENABLED, PERSIST_DIR, SCRIPT_LANGUAGE, SCRIPT_TIMEOUT
//   - RENDER_MAX_FPS
package config
