package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/adminsite/config"
	"github.com/leeforge/adminsite/logging"
)

func newServeCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin site over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Site.Addr = addr
			}

			logger := logging.NewLogger(cfg.Logging)
			defer func() {
				_ = logger.Sync()
				_ = logging.CloseWriters()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				w, err := watchConfig(configOptions(), logger)
				if err != nil {
					return err
				}
				defer func() { _ = w.Close() }()
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides site.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Report edits to the config files while serving")
	return cmd
}

// watchConfig reports edits to the loaded config files. The site is frozen
// at boot, so an edit only takes effect after a restart.
func watchConfig(opts config.Options, logger logging.Logger) (*config.Config, error) {
	var latest config.SiteConfig
	opts.Watch = true
	opts.OnChange = func(e fsnotify.Event) {
		fields := []zap.Field{zap.String("file", e.Name)}
		if err := latest.Validate(); err != nil {
			logger.Error("config file changed and no longer validates", append(fields, zap.Error(err))...)
			return
		}
		logger.Warn("config file changed, restart to apply", fields...)
	}
	c, err := config.New(opts)
	if err != nil {
		return nil, err
	}
	if err := c.BindWithDefaults(&latest); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// serve runs the HTTP server until ctx is done, then drains it and closes
// the runtime modules.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Site.Addr,
		Handler:           a.site.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("admin site listening",
			zap.String("addr", srv.Addr),
			zap.String("prefix", a.site.Prefix()),
		)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.runtime.Shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return stderrors.Join(srv.Shutdown(shutdownCtx), a.runtime.Shutdown(shutdownCtx))
}
