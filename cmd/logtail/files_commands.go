package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"logtail/internal/api"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "files",
		Aliases: []string{"ls"},
		Short:   "List files served by the daemon",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				entries, err := client.Files(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No files")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{entry.Name, humanSize(entry.Size), formatTimestamp(entry.Modified)})
				}
				fmt.Fprintln(out, renderTable([]column{
					{Header: "Name"},
					{Header: "Size", Right: true},
					{Header: "Modified"},
				}, rows, strconv.Itoa(len(entries))+" file(s)"))
				return nil
			})
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file to the daemon's files directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			target := name
			if target == "" {
				target = filepath.Base(path)
			}
			return ctx.withClient(func(client *api.Client) error {
				return uploadFile(cmd.Context(), cmd, client, path, target)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name to store the file under (defaults to the base name)")
	return cmd
}

func uploadFile(ctx context.Context, cmd *cobra.Command, client *api.Client, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	resp, err := client.Upload(ctx, name, f)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s)\n", resp.Filename, humanSize(resp.Size))
	return nil
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a served file and stop everyone following it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Delete(cmd.Context(), name)
				if api.IsNotFound(err) {
					return fmt.Errorf("file %s not found", name)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted %s\n", name)
				if resp.StoppedSubscriptions > 0 {
					fmt.Fprintf(out, "Stopped %d subscription(s)\n", resp.StoppedSubscriptions)
				}
				return nil
			})
		},
	}
}
