package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func remindCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one feeding reminder pass",
		Long: `Check which spiders need food and send a reminder to the configured
notification URLs. Useful from cron when the MCP server is not running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			worker, err := app.Reminder()
			if err != nil {
				return err
			}
			res, err := worker.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Notified:
				fmt.Fprintf(out, "Reminder sent: %d spider(s) need feeding.\n", res.Badge.Count())
			case res.Badge.Count() == 0:
				fmt.Fprintln(out, "Nobody needs food.")
			default:
				fmt.Fprintf(out, "%d spider(s) need feeding; no reminder sent.\n", res.Badge.Count())
			}
			return nil
		},
	}
}
