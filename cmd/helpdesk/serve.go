package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/elio-helpdesk/client/internal/handler"
	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the widget bridge for browser front ends",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	ctrl, err := newController(logger, session.WithLastIssuedWins())
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterConfig{
		Session:        ctrl,
		Personas:       persona.NewCatalog(persona.Seed()),
		Limits:         limits(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Str("backend", cfg.Helpdesk.BaseURL).Msg("[serve] widget bridge listening")
	return runServer(cmd.Context(), srv, logger)
}

func runServer(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("[serve] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
