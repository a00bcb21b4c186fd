package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"remind/internal/schema"
	"remind/internal/service"
	"remind/internal/ui"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a reminder",
	Long: `Edit a reminder addressed by its local or server id.

Only the given flags change; everything else is left as is. Changing the
time re-registers the trigger.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		ctx := context.Background()
		rec, err := a.service.FindReminder(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}

		patch := &service.Patch{}
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("notes") {
			v, _ := cmd.Flags().GetString("notes")
			patch.Notes = &v
		}
		if cmd.Flags().Changed("at") {
			raw, _ := cmd.Flags().GetString("at")
			at, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				fatalf("invalid --at value %q: expected RFC 3339", raw)
			}
			patch.TriggerAt = &at
		}
		if cmd.Flags().Changed("tz") {
			v, _ := cmd.Flags().GetString("tz")
			if _, err := time.LoadLocation(v); err != nil {
				fatalf("unknown timezone %q", v)
			}
			patch.Timezone = &v
		}
		if patch.Title == nil && patch.Notes == nil && patch.TriggerAt == nil && patch.Timezone == nil {
			fatalf("nothing to change; use --title, --notes, --at, or --tz")
		}

		updated, err := a.service.EditReminder(ctx, schema.Ephemeral(rec.EphemeralID), patch)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s %s\n", ui.Pass("Updated:"), updated.Title)
		fmt.Printf("  fires %s  %s\n", updated.TriggerAt.Local().Format("Mon Jan 2 15:04"), syncBadge(updated.SyncState))
	},
}

func init() {
	editCmd.Flags().String("title", "", "New title")
	editCmd.Flags().String("notes", "", "New notes")
	editCmd.Flags().String("at", "", "New trigger time (RFC 3339)")
	editCmd.Flags().String("tz", "", "New timezone label")
	rootCmd.AddCommand(editCmd)
}
