// Package httpserver defines the contract the command layer uses to run the
// HTTP server without depending on its construction details.
package httpserver

import (
	api "github.com/plantcare-go/plantcare/internal/api/v2"
)

// Server defines the interface for the plant-care HTTP server.
type Server interface {
	// Start begins serving HTTP requests in a background goroutine and
	// returns immediately. Use Shutdown() to stop the server.
	Start()

	// StartWithGracefulShutdown serves until SIGINT or SIGTERM, then shuts down.
	StartWithGracefulShutdown() error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown() error

	// APIController returns the v2 API controller, or nil before routes are set up.
	APIController() *api.Controller
}
