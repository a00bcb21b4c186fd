package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"remind/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and sync status",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		ctx := context.Background()
		stats, err := a.service.CollectStats(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Println(ui.Accent("Store"))
		fmt.Printf("  path:      %s\n", a.store.Path())
		fmt.Printf("  reminders: %d (%d synced, %d pending sync)\n", stats.Total, stats.Synced, stats.Unsynced)
		fmt.Printf("  scheduled: %d\n", stats.Scheduled)

		fmt.Println(ui.Accent("Remote"))
		if a.cfg.Remote.URL == "" {
			fmt.Printf("  %s\n", ui.Warn("not configured"))
			return
		}
		fmt.Printf("  url: %s\n", a.cfg.Remote.URL)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.mirror.Ping(pingCtx); err != nil {
			fmt.Printf("  %s %v\n", ui.Err("unreachable:"), err)
			return
		}
		fmt.Printf("  %s\n", ui.Pass("reachable"))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
