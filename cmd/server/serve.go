package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/database"
	"github.com/n1kh11p/blokt-sub000/internal/server"
	"github.com/spf13/cobra"
)

const sentryFlushTimeout = 2 * time.Second

func serveCommand() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run migrations on startup")
	return cmd
}

func serve(skipMigrate bool) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if !skipMigrate {
		if err := database.Migrate(a.db, a.log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	if err := a.buildServices(); err != nil {
		return err
	}
	// the analysis queue lives in memory, so nothing resumes these jobs
	if _, err := a.services.Video.RecoverInterrupted(); err != nil {
		return err
	}

	router, err := server.NewRouter(server.Deps{
		Config:   a.cfg,
		DB:       a.db,
		Backend:  a.backend,
		Services: a.services,
		Metrics:  a.metrics,
		Log:      a.log,
		Version:  version,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown failed", "error", err)
	}
	if a.runner != nil {
		if err := a.runner.Stop(shutdownCtx); err != nil {
			a.log.Error("analysis runner did not drain", "error", err)
		}
	}
	return nil
}
