// Package config provides 12-factor configuration management for the agent.
//
// Configuration is loaded from HOSTLINK_* environment variables with
// sensible defaults, so a bare `hostlink` invocation over SSH needs no
// setup at all.
//
// Configuration Sections:
//   - Logging: log level, development mode, optional log file (stderr otherwise)
//   - Stream: chunk size for read/exec output streaming
//   - Proc: process supervision timing, sudo command, shell override
//   - Search: find/grep result caps
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Streaming in %d-byte chunks\n", cfg.Stream.ChunkSize)
//
// Environment Variables:
//   - HOSTLINK_LOG_LEVEL, HOSTLINK_LOG_DEV, HOSTLINK_LOG_FILE
//   - HOSTLINK_CHUNK_SIZE
//   - HOSTLINK_POLL_INTERVAL, HOSTLINK_KILL_GRACE, HOSTLINK_DRAIN_TIMEOUT
//   - HOSTLINK_SUDO_CMD, HOSTLINK_SHELL
//   - HOSTLINK_FIND_LIMIT, HOSTLINK_GREP_LIMIT
package config
