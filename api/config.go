// Package api provides an HTTP API server for the memory engine: adding
// conversation turns, recalling context, searching long-term memory,
// managing facts, and saving agent checkpoints.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string
}
