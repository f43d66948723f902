// Command server runs the periphery host: display monitors and a sandboxed
// file tree exposed to Lua and JavaScript sessions, driven over HTTP.
//
// Configuration comes from the environment (12-factor) or from a TOML or
// YAML file given with -config. Flags override either source.
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# From a file, with coloured debug logs
//	./server -config periphery.toml -dev
//
// Monitor snapshots are restored at start and saved at shutdown when
// persistence is enabled.
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
