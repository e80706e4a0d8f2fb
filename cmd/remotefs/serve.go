package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackfish212/remotefs/bridge"
	"github.com/jackfish212/remotefs/internal/devserver"
	"github.com/jackfish212/remotefs/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC bridge on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.AutoReconnect(ctx); err != nil {
				logrus.WithField("error", err).Warn("remotefs: could not restore session")
			}

			if metricsAddr == "" {
				metricsAddr = a.cfg.MetricsAddr
			}
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr)
				defer stop()
			}
			return bridge.New(mgr).Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// serveMetrics exposes /metrics until the returned function is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logrus.WithField("addr", addr).Info("remotefs: serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("error", err).Error("remotefs: metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func (a *app) devserverCmd() *cobra.Command {
	var addr, user, password, scope string
	cmd := &cobra.Command{
		Use:   "devserver [ROOT]",
		Short: "Serve a local directory over the remote wire contract",
		Long: `devserver serves ROOT (default REMOTEFS_DEV_ROOT) the way the remote
file server does: HTML listings on GET, action-query mutations, Basic auth
when --user is set. The first directory level is the project.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.DevRoot
			if len(args) == 1 {
				root = args[0]
			}
			if addr == "" {
				addr = a.cfg.DevAddr
			}
			if err := os.MkdirAll(root, 0o755); err != nil {
				return err
			}
			opts := devserver.Options{Scope: scope}
			if user != "" {
				opts.Accounts = gin.Accounts{user: password}
			}
			srv := devserver.New(afero.NewBasePathFs(afero.NewOsFs(), root), opts)
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default REMOTEFS_DEV_ADDR)")
	cmd.Flags().StringVar(&user, "user", "", "require Basic auth with this user")
	cmd.Flags().StringVar(&password, "password", "", "password for --user")
	cmd.Flags().StringVar(&scope, "scope", "", "URL scope segment (default files)")
	return cmd
}
