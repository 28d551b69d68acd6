// Package api provides an HTTP API server for writing and querying project memory.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8091")
	ListenAddr string
}
