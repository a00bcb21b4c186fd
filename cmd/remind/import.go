package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"remind/internal/migrate"
	"remind/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import <dump.json>",
	Short: "Import reminders from a legacy app dump",
	Long: `Import a JSON dump exported from the legacy mobile app.

The dump is the app's stored reminder array. Records are appended to the
local store; entries already imported or too malformed to convert are
skipped. Unsynced entries are pushed by the next sweep.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		report, err := migrate.ImportFile(context.Background(), a.store, args[0], a.logger)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s %d reminders (%d skipped)\n", ui.Pass("Imported"), report.Imported, report.Skipped)
		if report.Imported > 0 {
			fmt.Println(ui.Faint("Run 'remind sync' to push them, or let the daemon's next sweep do it."))
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
