package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cruds/pkg/views"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr, prefix string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the CRUD pages over HTTP",
		Long:  "Serve mounts the pages of every model in config.yaml and runs until\ninterrupted. SIGINT and SIGTERM shut the server down gracefully.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			if addr == "" {
				addr = s.settings.Addr
			}
			logger := a.logger()
			site, err := views.NewSite(s.registry, s.store,
				views.WithLogger(logger),
				views.WithPrefix(prefix),
				views.WithDefaultFormat(s.settings.DefaultFormat),
			)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError(fmt.Errorf("listen %s: %w", addr, err))
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("serving", "addr", ln.Addr().String(), "models", s.registry.Len(),
				"backend", s.settings.Backend, "data_dir", s.dataDir)
			return serve(ctx, ln, site, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: addr from config.yaml)")
	cmd.Flags().StringVar(&prefix, "prefix", "/", "URL prefix for all pages")
	return cmd
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return sysError(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sysError(fmt.Errorf("shutdown: %w", err))
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return sysError(err)
	}
	return nil
}
