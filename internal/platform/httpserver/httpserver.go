// Package httpserver configures the process's single HTTP listener.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps a handler in a server with every timeout set, so a stalled or
// malicious client cannot pin a connection open. WriteTimeout is the loosest
// of the set because the admin retention-run endpoint answers only after its
// whole batch completes.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
