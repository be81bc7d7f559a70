// Package timeouts defines the HTTP server timeouts shared by site commands.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Seed caps the time allowed for loading a topic seed at startup.
const Seed = 30 * time.Second
