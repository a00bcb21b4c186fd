package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"remind/internal/config"
	"remind/internal/daemon"
	"remind/internal/dashboard"
	"remind/internal/notify"
	"remind/internal/service"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync and notification daemon",
	Long: `Run the long-lived process that fires reminder triggers and keeps the
local store synced with the remote mirror.

On startup the daemon re-registers a trigger for every stored reminder
(in-memory timers do not survive restarts), then sweeps unsynced records on
a fixed schedule. With the dashboard enabled in the configuration, reminder
activity is also broadcast over WebSocket.`,
	Run: func(cmd *cobra.Command, args []string) {
		var sink service.EventSink
		var dash *dashboard.Server

		// The dashboard decision needs the config before the app exists,
		// so peek at it first.
		_, cfg, err := config.Load(configDir)
		if err != nil {
			fatalf("%v", err)
		}

		if cfg.Dashboard.Enabled {
			dash = dashboard.NewServer(&dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: log.New(cfg.LogWriter(), "[dashboard] ", log.LstdFlags),
			})
			if err := dash.Start(); err != nil {
				fatalf("failed to start dashboard: %v", err)
			}
			defer func() { _ = dash.Stop() }()

			bridge := dashboard.NewBridge(dash, nil)
			sink = bridge.Sink()
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", cfg.Dashboard.Port)
		}

		a, err := openApp(sink)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		// Fired triggers go back through the service so handles are
		// cleared and events reach the dashboard.
		cap := notify.NewTimerCapability(func(n notify.Notification) {
			a.service.NotifyFired(context.Background(), n)
		}, a.logger)
		a.notify = notify.NewCoordinator(cap, a.logger)
		a.service = service.New(a.store, a.sync, a.notify, sink, a.logger)

		d, err := daemon.New(a.service, &daemon.Config{
			ResyncInterval: a.cfg.Daemon.ResyncInterval,
			Pull:           a.cfg.Remote.URL != "",
			Logger:         log.New(a.cfg.LogWriter(), "[daemon] ", log.LstdFlags),
		})
		if err != nil {
			fatalf("%v", err)
		}

		a.loader.Watch(func(_ *config.Config, err error) {
			if err != nil {
				a.logger.Printf("WARNING: ignoring invalid config change: %v", err)
				return
			}
			a.logger.Printf("Configuration file changed; restart to apply interval or remote changes")
		})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Println("Daemon running. Press Ctrl+C to stop...")
		if err := d.Start(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
