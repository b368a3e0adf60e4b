package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mirror/internal/config"
	"mirror/internal/ipc"
)

// commandContext carries the shared flag state and the once-loaded config
// across every subcommand of one invocation.
type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{socketFlag: socketFlag, configFlag: configFlag}
}

// ensureConfig loads the configuration named by --config (or the default
// search path) exactly once and creates its directories. Every later call
// returns the same result.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.flagValue(c.configFlag))
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// configValue is ensureConfig for callers that tolerate a nil config, like
// the stop path tearing down a daemon whose config no longer parses.
func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// socketPath resolves the daemon socket: the --socket flag wins, then the
// loadable config's log directory, then the conventional location, and as a
// last resort the system temp directory.
func (c *commandContext) socketPath() string {
	if socket := c.flagValue(c.socketFlag); socket != "" {
		return socket
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.SocketPath()
	}
	if logDir, err := config.ExpandPath("~/.local/share/mirror/logs"); err == nil {
		return filepath.Join(logDir, "mirror.sock")
	}
	return filepath.Join(os.TempDir(), "mirror.sock")
}

func (c *commandContext) flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

// withClient dials the daemon socket, runs fn, and closes the connection.
// Dial failures are translated into operator-facing guidance.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) {
			return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `mirror start`", socket)
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
		}
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()
	return fn(client)
}

// shouldSkipConfig reports whether the command (or an ancestor) opts out of
// config loading, as `config init` does when no config exists yet.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
