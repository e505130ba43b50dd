package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"logtail/internal/api"
	"logtail/internal/daemonctl"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	var diagnostic bool

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, ctx.launchOptions(diagnostic), startWaitTimeout)
				if err != nil {
					return err
				}
				printStartResult(cmd, result)
				return nil
			})
		},
	}
	start.Flags().BoolVar(&diagnostic, "diagnostic", false, "Also write a debug-level JSON log under <log_dir>/debug")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := ctx.ensureConfig()
			return ctx.withClient(func(client *api.Client) error {
				result, err := daemonctl.StopAndTerminate(cmd.Context(), client, cfg, stopGracePeriod)
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				if err != nil {
					return err
				}
				printStopResult(cmd, result)
				return nil
			})
		},
	}

	restart := &cobra.Command{
		Use:   "restart",
		Short: "Restart the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := ctx.ensureConfig()
			return ctx.withClient(func(client *api.Client) error {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolve executable: %w", err)
				}
				result, err := daemonctl.Restart(cmd.Context(), client, cfg, exe, ctx.launchOptions(false), stopGracePeriod, startWaitTimeout)
				if err != nil {
					return err
				}
				if result.WasRunning {
					printStopResult(cmd, result.Stop)
				}
				printStartResult(cmd, result.Start)
				return nil
			})
		},
	}

	return []*cobra.Command{start, stop, restart}
}

func (c *commandContext) launchOptions(diagnostic bool) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: c.configPath(),
		APIBind:    c.apiAddressFlag(),
		Diagnostic: diagnostic,
	}
}

func printStartResult(cmd *cobra.Command, result daemonctl.StartResult) {
	out := cmd.OutOrStdout()
	switch result.State {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
	default:
		fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
	}
}

func printStopResult(cmd *cobra.Command, result daemonctl.StopResult) {
	out := cmd.OutOrStdout()
	if result.ForcedKill {
		fmt.Fprintf(out, "Daemon did not exit in time; killed pid %d\n", result.PID)
		return
	}
	fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
}
