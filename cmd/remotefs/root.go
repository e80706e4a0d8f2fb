package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/config"
	"github.com/jackfish212/remotefs/connection"
	"github.com/jackfish212/remotefs/credstore"
	"github.com/jackfish212/remotefs/index"
	"github.com/jackfish212/remotefs/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	envFiles  []string
	logLevel  string
	logFormat string

	cfg    *config.Config
	mgr    *connection.Manager
	index  *index.Memory
	closer func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "remotefs",
		Short:         "Browse and edit a remote HTML-listing file server",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env", []string{".env"}, "env files to load before reading REMOTEFS_* variables")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides REMOTEFS_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides REMOTEFS_LOG_FORMAT)")

	root.AddCommand(
		a.connectCmd(),
		a.disconnectCmd(),
		a.statusCmd(),
		a.lsCmd(),
		a.statCmd(),
		a.catCmd(),
		a.putCmd(),
		a.mkdirCmd(),
		a.rmCmd(),
		a.mvCmd(),
		a.serveCmd(),
		a.devserverCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}

// manager opens the credential stores and builds the connection manager.
func (a *app) manager() (*connection.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	if err := os.MkdirAll(a.cfg.StateDir, 0o700); err != nil {
		return nil, err
	}
	pass := []byte(a.cfg.Secret)
	if len(pass) == 0 {
		var err error
		if pass, err = credstore.LoadOrCreateKeyFile(a.cfg.KeyFilePath()); err != nil {
			return nil, fmt.Errorf("loading secret key: %w", err)
		}
	}
	secure, err := credstore.OpenSecureStore(a.cfg.SecureStorePath(), pass)
	if err != nil {
		return nil, err
	}
	fallback := credstore.NewStateStore(a.cfg.StateFilePath(), "")

	a.index = index.NewMemory()
	opts := []connection.Option{
		connection.WithHTTPClient(http.DefaultClient),
		connection.WithFacadeOptions(
			remotefs.WithVirtualPrefixes(a.cfg.VirtualPrefixes...),
			remotefs.WithIndexHook(a.index),
		),
		connection.WithCollaborators(connection.Basic("index", a.index)),
	}
	if a.cfg.Scope != "" {
		opts = append(opts, connection.WithScope(a.cfg.Scope))
	}
	a.mgr = connection.New(secure, fallback, opts...)
	a.closer = func() error {
		a.mgr.Close(context.Background())
		a.index.Wait()
		return secure.Close()
	}
	return a.mgr, nil
}

// facade returns a live Facade, restoring the stored session or, failing
// that, connecting with the configured credentials.
func (a *app) facade(ctx context.Context) (*remotefs.Facade, error) {
	mgr, err := a.manager()
	if err != nil {
		return nil, err
	}
	if err := mgr.AutoReconnect(ctx); err != nil {
		logrus.WithField("error", err).Warn("remotefs: could not restore session")
	}
	if f := mgr.Facade(); f != nil {
		return f, nil
	}
	if creds := a.cfg.Credentials(); !creds.IsZero() {
		if err := mgr.ConnectCredentials(ctx, creds); err != nil {
			return nil, err
		}
		return mgr.Facade(), nil
	}
	return nil, fmt.Errorf("%w: run `remotefs connect` first", remotefs.ErrNotConnected)
}
