package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mirror/internal/daemonctl"
	"mirror/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mirror daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the mirror daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping mirror daemon...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the mirror daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			stopResult, stopErr := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if stopErr != nil && !errors.Is(stopErr, daemonctl.ErrDaemonNotRunning) {
				return stopErr
			}
			if stopErr == nil {
				if stopResult.ForcedKill && stopResult.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", stopResult.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			if _, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and presentation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			status, err := fetchStatus(ctx)
			if err != nil {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				return nil
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			runningKind := statusOK
			runningDetail := fmt.Sprintf("pid %d, session %s", status.PID, status.SessionID)
			if !status.Running {
				runningKind = statusWarn
				runningDetail = "stopped"
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", runningKind, runningDetail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Camera", statusInfo, status.CameraSource, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Presentation", colorize) {
				fmt.Fprintln(stdout, line)
			}
			stateDetail := status.StateKind
			if status.PersonID != "" {
				stateDetail = fmt.Sprintf("%s (%s)", status.StateKind, status.PersonID)
			}
			if !status.StateSince.IsZero() {
				stateDetail = fmt.Sprintf("%s since %s", stateDetail, status.StateSince.Local().Format(time.Kitchen))
			}
			fmt.Fprintln(stdout, renderStatusLine("State", statusKindForState(status.StateKind), stateDetail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Profiles", statusInfo,
				fmt.Sprintf("%d people, %d encodings", status.People, status.Encodings), colorize))
			fmt.Fprintln(stdout)

			if len(status.Dependencies) > 0 {
				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range dependencyLines(status.Dependencies, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)
			}

			for _, line := range renderSectionHeader("Counters", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Frames read", fmt.Sprintf("%d", status.Pipeline.Frames)},
				{"Faces detected", fmt.Sprintf("%d", status.Pipeline.Detections)},
				{"Empty frames", fmt.Sprintf("%d", status.Pipeline.EmptyFrames)},
				{"Detector errors", fmt.Sprintf("%d", status.Pipeline.DetectErrors)},
				{"Jobs submitted", fmt.Sprintf("%d", status.Dispatch.Submitted)},
				{"Jobs dropped", fmt.Sprintf("%d", status.Dispatch.Dropped)},
				{"Job timeouts", fmt.Sprintf("%d", status.Dispatch.Timeouts)},
				{"Adapter errors", fmt.Sprintf("%d", status.Dispatch.AdapterErrors)},
			}
			table := renderTable([]string{"Counter", "Value"}, rows, 1)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func fetchStatus(ctx *commandContext) (*ipc.StatusResponse, error) {
	var status *ipc.StatusResponse
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Status()
		if err != nil {
			return err
		}
		status = resp
		return nil
	})
	return status, err
}

func statusKindForState(state string) statusKind {
	switch state {
	case "known":
		return statusOK
	case "camera_error":
		return statusError
	case "unknown":
		return statusWarn
	default:
		return statusInfo
	}
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
