package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"remind/internal/config"
	"remind/internal/notify"
	"remind/internal/parse"
	"remind/internal/remote"
	"remind/internal/service"
	"remind/internal/store"
	syncpkg "remind/internal/sync"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "remind",
	Short: "Offline-first reminders with natural-language input",
	Long: `remind keeps your reminders in a local database and mirrors them to a
remote libSQL table when the network allows. Reminders are created from
natural language ("remind me to call mom tomorrow at 5pm"), scheduled as
local triggers, and survive offline use: anything created or edited without
a connection is synced by the next sweep.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", config.DefaultDir(), "Configuration directory")
}

// app bundles everything a command needs. Close releases the store and the
// mirror connection.
type app struct {
	cfg     *config.Config
	loader  *config.Loader
	store   *store.Store
	mirror  remote.Mirror
	sync    syncpkg.Reconciler
	notify  *notify.Coordinator
	service *service.Service
	parser  parse.Parser
	logger  *log.Logger

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Printf("Close error: %v", err)
		}
	}
}

// openApp wires the full stack from configuration. events may be nil.
func openApp(events service.EventSink) (*app, error) {
	loader, cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	logger := log.New(cfg.LogWriter(), "[remind] ", log.LstdFlags)

	st, err := store.Open(cfg.StorePath(), logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loader: loader, store: st, logger: logger}
	a.closers = append(a.closers, st.Close)

	if cfg.Remote.URL != "" {
		mirror, err := remote.Open(cfg.Remote.URL, cfg.Remote.AuthToken, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := mirror.InitSchema(context.Background()); err != nil {
			logger.Printf("WARNING: remote schema not verified: %v", err)
		}
		a.mirror = mirror
		a.closers = append(a.closers, mirror.Close)
	} else {
		a.mirror = remote.Offline{}
	}

	a.sync = syncpkg.New(st, a.mirror, logger)
	a.notify = notify.NewCoordinator(notify.NewTimerCapability(nil, logger), logger)
	a.service = service.New(st, a.sync, a.notify, events, logger)
	a.parser = parse.New(cfg.Parser.AnthropicAPIKey, cfg.Parser.Model, logger)
	return a, nil
}

// timezone returns the configured zone, falling back to the system's.
func (a *app) timezone() string {
	if a.cfg.Timezone != "" {
		return a.cfg.Timezone
	}
	return time.Now().Location().String()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
