package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"remind/internal/schema"
	"remind/internal/ui"
)

var addCmd = &cobra.Command{
	Use:   "add <request...>",
	Short: "Create a reminder from natural language",
	Long: `Create a reminder from a natural-language request.

The request is parsed for a time expression; everything else becomes the
title. With --at the parser is bypassed and the request text is used as the
title verbatim.

Example usage:
  remind add call mom tomorrow at 5pm
  remind add --at 2026-09-01T17:00:00Z --notes "about the weekend" call mom`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		at, _ := cmd.Flags().GetString("at")
		notes, _ := cmd.Flags().GetString("notes")

		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		ctx := context.Background()
		text := strings.Join(args, " ")

		var draft *schema.Draft
		if at != "" {
			if _, err := time.Parse(time.RFC3339, at); err != nil {
				fatalf("invalid --at value %q: expected RFC 3339, e.g. 2026-09-01T17:00:00Z", at)
			}
			draft = &schema.Draft{
				Title:        text,
				Notes:        notes,
				TriggerAtISO: at,
				Timezone:     a.timezone(),
				Success:      true,
			}
		} else {
			draft, err = a.parser.Parse(ctx, text, a.timezone())
			if err != nil {
				fatalf("failed to parse request: %v", err)
			}
			if !draft.Success {
				fatalf("could not understand the request: %s", draft.Error)
			}
			if notes != "" {
				draft.Notes = notes
			}
		}

		res, err := a.service.CreateReminder(ctx, draft)
		if err != nil {
			fatalf("%v", err)
		}

		rec := res.Reminder
		when, _ := draft.TriggerTime()
		fmt.Printf("%s %s\n", ui.Pass("Saved:"), rec.Title)
		fmt.Printf("  fires %s  %s\n", when.Format("Mon Jan 2 15:04"), ui.Faint(rec.EphemeralID))

		switch {
		case res.Synced:
			fmt.Printf("  %s\n", ui.Pass("synced"))
		default:
			fmt.Printf("  %s\n", ui.Warn("not synced yet (will retry on next sweep)"))
		}
		if res.ScheduleErr != nil {
			fmt.Printf("  %s %v\n", ui.Warn("no trigger:"), res.ScheduleErr)
		}
	},
}

func init() {
	addCmd.Flags().String("at", "", "Explicit trigger time (RFC 3339), bypasses parsing")
	addCmd.Flags().String("notes", "", "Additional notes")
	rootCmd.AddCommand(addCmd)
}
