package server

import (
	"net/http"

	"agility-scorer/internal/middleware"
	"agility-scorer/internal/rpc"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// NewHandler routes the session service behind CORS and request logging.
func NewHandler(relay *RelayServer, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	path, handler := rpc.NewSessionServiceHandler(relay)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Grpc-Status", "Grpc-Message"},
	})
	mux.Handle(path, middleware.RequestID(logger)(c.Handler(handler)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}
