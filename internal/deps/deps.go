// Package deps probes the external programs the daemon shells out to, for
// the status display and IPC.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mirror/internal/config"
)

// Status reports the availability of one external program.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Check probes every external program the active configuration relies on.
// The detection and embedding sidecars are network services, so the speech
// synthesizer is the only true shell-out.
func Check(cfg *config.Config) []Status {
	var statuses []Status
	if cfg.Speech.Enabled {
		statuses = append(statuses, probe(Status{
			Name:        "Speech synthesizer",
			Command:     cfg.Speech.Command,
			Description: "Speaks greeting messages when a known person is recognized",
		}))
	}
	return statuses
}

// probe resolves the command against PATH. Available entries carry the
// resolved binary path in Detail; unavailable ones carry the reason.
func probe(status Status) Status {
	status.Command = strings.TrimSpace(status.Command)
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	status.Detail = path
	return status
}
