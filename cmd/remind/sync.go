package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"remind/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push unsynced reminders to the remote mirror",
	Long: `Run one resync sweep: every reminder that never reached the remote
mirror or carries an unpushed edit is retried. With --pull the remote list
is merged back in afterwards, adopting edits made on other devices and
dropping reminders deleted there.`,
	Run: func(cmd *cobra.Command, args []string) {
		pull, _ := cmd.Flags().GetBool("pull")

		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		if a.cfg.Remote.URL == "" {
			fatalf("no remote configured; set remote.url in %s", configDir)
		}

		report, err := a.service.Resync(context.Background(), pull)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s %d newly synced\n", ui.Pass("Sync complete:"), report.Synced)
		if pull {
			fmt.Printf("  %d dropped (deleted remotely)\n", report.Dropped)
			fmt.Printf("  %d rescheduled (retimed remotely)\n", report.Retimed)
		}
	},
}

func init() {
	syncCmd.Flags().Bool("pull", false, "Also merge the remote list back in")
	rootCmd.AddCommand(syncCmd)
}
