package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ghost-crew/configs"
	"ghost-crew/internal/app"
	"ghost-crew/internal/client"
	"ghost-crew/internal/localstore"
	"ghost-crew/internal/navigation"
	"ghost-crew/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is what every client command runs against.
type env struct {
	cfg     configs.Config
	local   *localstore.Store
	backend *client.Client
	store   *app.Store
}

var (
	loggersOnce sync.Once
	loggersErr  error
)

// initLoggers opens the log files once per process.
func initLoggers(dir string) error {
	loggersOnce.Do(func() { loggersErr = logger.InitLoggers(dir) })
	return loggersErr
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := configs.LoadConfig()
	if err := initLoggers(cfg.LogDir); err != nil {
		return nil, err
	}

	local, err := localstore.Open(cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	backend := client.New(cfg.APIBaseURL, cfg.RequestTimeout)

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	online := backend.Ping(probeCtx) == nil
	cancel()

	store, err := app.New(ctx, backend, local, app.Options{StoreKey: cfg.LocalStoreKey, Online: online})
	if err != nil {
		_ = local.Close()
		return nil, err
	}
	return &env{cfg: cfg, local: local, backend: backend, store: store}, nil
}

func (e *env) close() {
	if err := e.local.Close(); err != nil {
		logger.ErrorLogger.Error("Error closing local storage", zap.Error(err))
	}
	logger.SyncLoggers()
}

// withEnv runs fn with a freshly opened env and closes it afterwards.
func withEnv(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e, args)
	}
}

// navigate applies the route guard before a screen is shown.
func (e *env) navigate(path string) (navigation.Destination, error) {
	dest, err := navigation.Resolve(path, e.store)
	if err != nil {
		return dest, err
	}
	if dest.Redirected {
		switch dest.Path {
		case "/login":
			return dest, errors.New("not signed in, run: ghostctl login --pin <PIN>")
		case "/jobs":
			return dest, fmt.Errorf("%s needs a supervisor or admin", path)
		}
		return dest, fmt.Errorf("%s redirects to %s", path, dest.Path)
	}
	return dest, nil
}

func (e *env) connectivity() string {
	if e.store.IsOnline() {
		return "online"
	}
	return "offline"
}
