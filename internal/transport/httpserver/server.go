package httpserver

import (
	"net/http"
	"time"

	"learning-app-go/internal/config"
)

// New builds the stub server. Write timeout leaves room for the artificial
// latency on top of the regular budget.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Stub.Latency + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
