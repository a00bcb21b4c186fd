package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all reminders as YAML",
	Long: `Write the full reminder list to stdout (or --out) as YAML, suitable
for backups and inspection. All fields are included, sync metadata too.`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")

		a, err := openApp(nil)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		list, err := a.service.ListReminders(context.Background())
		if err != nil {
			fatalf("%v", err)
		}

		data, err := yaml.Marshal(list)
		if err != nil {
			fatalf("failed to encode reminders: %v", err)
		}

		if out == "" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			fatalf("failed to write %s: %v", out, err)
		}
		fmt.Printf("Exported %d reminders to %s\n", len(list), out)
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
