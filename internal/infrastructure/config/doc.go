// Package config provides 12-factor configuration management for the coordinator.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/ can override environment variables.
//
// Configuration Sections:
//   - Server: Embedder HTTP API settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of the embedder API
//   - Isolation: Site-per-process switch, isolated origins, policy file
//   - Process: Renderer launch mode, timeouts, process cap
//   - Breaker: Launch failure threshold and cooldown per site key
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SITE_PER_PROCESS, ISOLATED_ORIGINS, POLICY_FILE
//   - RENDERER_MODE, RENDERER_PATH, LAUNCH_TIMEOUT, UNLOAD_TIMEOUT, MAX_PROCESSES
//   - LAUNCH_FAILURE_THRESHOLD, LAUNCH_COOLDOWN
package config
