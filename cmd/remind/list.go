package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"remind/internal/schema"
	"remind/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reminders",
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")

		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		list, err := a.service.ListReminders(context.Background())
		if err != nil {
			fatalf("%v", err)
		}

		sort.SliceStable(list, func(i, j int) bool {
			return list[i].TriggerAt.Before(list[j].TriggerAt)
		})

		shown := 0
		for _, rec := range list {
			if !all && rec.TriggerAt.Before(time.Now()) {
				continue
			}
			printReminder(rec)
			shown++
		}

		if shown == 0 {
			if all {
				fmt.Println("No reminders.")
			} else {
				fmt.Println("No upcoming reminders. Use --all to include past ones.")
			}
		}
	},
}

func printReminder(rec schema.Reminder) {
	fmt.Printf("%s  %s\n", ui.Accent(rec.TriggerAt.Local().Format("Mon Jan 2 15:04")), rec.Title)
	if rec.Notes != "" {
		fmt.Printf("    %s\n", rec.Notes)
	}
	fmt.Printf("    %s  %s\n", ui.Faint(rec.EphemeralID), syncBadge(rec.SyncState))
}

func syncBadge(s schema.SyncState) string {
	switch s {
	case schema.SyncSynced:
		return ui.Pass("synced")
	case schema.SyncDirty:
		return ui.Warn("edit pending")
	default:
		return ui.Warn("not synced")
	}
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "Include past reminders")
	rootCmd.AddCommand(listCmd)
}
