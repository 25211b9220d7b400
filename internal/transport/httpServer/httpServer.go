package httpServer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"thepup/internal/config"
	"thepup/internal/transport/httpServer/routers"

	"github.com/go-chi/chi/v5"
)

type HttpServer struct {
	log        *slog.Logger
	httpServer *http.Server
}

func NewHttpServer(log *slog.Logger, cfg config.HttpServerConfig, router *routers.Router) *HttpServer {
	mux := chi.NewRouter()
	router.Mount(mux)

	return &HttpServer{
		log: log,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Address, cfg.Port),
			Handler:      mux,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Listen блокируется до остановки сервера.
func (s *HttpServer) Listen() error {
	s.log.Info("http server started", slog.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.Listen(): %w", err)
	}
	return nil
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpServer.Shutdown(): %w", err)
	}
	return nil
}
