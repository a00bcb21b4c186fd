package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"remind/internal/schema"
	"remind/internal/ui"
)

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a reminder",
	Long: `Delete a reminder addressed by its local or server id.

Deletion cancels the trigger, removes the remote row when one exists, and
removes the local record. With --all every reminder is deleted after a
confirmation prompt.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		if all == (len(args) == 1) {
			fatalf("provide either an id or --all")
		}

		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		ctx := context.Background()

		if all {
			if !yes {
				var confirmed bool
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title("Delete ALL reminders?").
						Description("Local records, remote rows, and triggers will be removed.").
						Value(&confirmed),
				))
				if err := form.Run(); err != nil {
					fatalf("%v", err)
				}
				if !confirmed {
					fmt.Println("Aborted.")
					return
				}
			}

			n, err := a.service.DeleteAll(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s %d reminders\n", ui.Pass("Deleted"), n)
			return
		}

		rec, err := a.service.FindReminder(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if err := a.service.DeleteReminder(ctx, schema.Ephemeral(rec.EphemeralID)); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s %s\n", ui.Pass("Deleted:"), rec.Title)
	},
}

func init() {
	rmCmd.Flags().Bool("all", false, "Delete every reminder")
	rmCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(rmCmd)
}
