package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"logtail/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and live subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running:       %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "PID:           %d\n", status.PID)
				fmt.Fprintf(out, "Started:       %s\n", formatTimestamp(status.StartedAt))
				fmt.Fprintf(out, "Files dir:     %s\n", status.FilesDir)
				fmt.Fprintf(out, "Lock file:     %s\n", status.LockFilePath)
				fmt.Fprintf(out, "Viewers:       %d\n", status.Viewers)
				fmt.Fprintf(out, "Subscriptions: %d\n", len(status.Subscriptions))
				if len(status.Subscriptions) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(status.Subscriptions))
				for _, sub := range status.Subscriptions {
					rows = append(rows, []string{sub.ViewerID, sub.File})
				}
				fmt.Fprintln(out, renderTable([]column{{Header: "Viewer"}, {Header: "File"}}, rows,
					strconv.Itoa(len(rows))+" subscription(s)"))
				return nil
			})
		},
	}
}
