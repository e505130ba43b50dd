package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"logtail/internal/api"
)

func newTailCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "tail <name>",
		Short: "Print the last lines of a served file",
		Long: "Print the last non-empty lines of a served file. With --follow the\n" +
			"command keeps streaming appended lines until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			name := args[0]
			out := cmd.OutOrStdout()
			return ctx.withClient(func(client *api.Client) error {
				if follow {
					return followFile(cmd.Context(), out, client, name, cmd.Flags().Changed("lines"), lines)
				}
				result, err := client.Tail(cmd.Context(), name, lines)
				if api.IsNotFound(err) {
					return fmt.Errorf("file %s not found", name)
				}
				if err != nil {
					return err
				}
				for _, line := range result {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of lines to show (defaults to tail.default_lines)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming appended lines")
	return cmd
}

func followFile(parent context.Context, out io.Writer, client *api.Client, name string, linesSet bool, lines int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var requested *int
	if linesSet {
		requested = &lines
	}
	color := shouldColorize(out)

	err := client.Follow(ctx, name, requested, func(evt api.TailEvent) {
		switch evt.Type {
		case "initial-batch":
			if color {
				fmt.Fprintln(out, colorize(true, ansiBlue, "==> "+evt.File+" <=="))
			}
			for _, line := range evt.Lines {
				fmt.Fprintln(out, line)
			}
		case "new-line":
			fmt.Fprintln(out, evt.Line)
		case "error":
			fmt.Fprintln(out, colorize(color, ansiRed, "error: "+evt.Message))
		}
	})
	if api.IsNotFound(err) {
		return fmt.Errorf("file %s not found", name)
	}
	return err
}
