package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the validation API. Validation calls fan out
// to rule stores synchronously, so the write timeout leaves headroom for a
// slow dependency before the degradation layer answers instead.
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
