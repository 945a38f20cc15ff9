package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/config"
	"github.com/yildizm/ContractSum/internal/logger"
	"github.com/yildizm/ContractSum/internal/poller"
	"github.com/yildizm/ContractSum/internal/session"
)

// GetGlobalConfig returns the configuration loaded for the current command
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

// GetLogger returns a component logger that follows --verbose
func GetLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

// newClient builds an API client from the loaded configuration
func newClient() (*api.Client, error) {
	cfg := GetGlobalConfig()

	client, err := api.New(&api.Config{
		BaseURL:           cfg.Server.BaseURL,
		Timeout:           cfg.Server.Timeout,
		MaxRetries:        cfg.Server.MaxRetries,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxFileSize:       cfg.Upload.MaxFileSize,
		UserAgent:         "contractsum/" + appVersion,
	})
	if err != nil {
		return nil, err
	}
	client.SetLogger(GetLogger("api"))
	return client, nil
}

// newSessionStore opens the session file for the configured backend
func newSessionStore() (*session.Store, error) {
	cfg := GetGlobalConfig()
	store := session.NewStore(config.ExpandPath(cfg.Session.File), cfg.Server.BaseURL, cfg.Session.HistoryLimit)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func newPoller(client poller.Fetcher) *poller.Poller {
	cfg := GetGlobalConfig()
	p := poller.New(client, cfg.Polling.Interval, cfg.Polling.Timeout)
	p.SetLogger(GetLogger("cli"))
	return p
}

// authenticate restores the stored token on a new client
func authenticate(ctx context.Context) (*api.Client, *session.Store, *api.User, error) {
	client, err := newClient()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := newSessionStore()
	if err != nil {
		return nil, nil, nil, err
	}

	user, err := store.Restore(ctx, client)
	if err != nil {
		if errors.Is(err, session.ErrNotLoggedIn) {
			return nil, nil, nil, errors.New("not logged in, run 'contractsum login' first")
		}
		return nil, nil, nil, err
	}
	return client, store, user, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
