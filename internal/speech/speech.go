// Package speech shells out to an external text-to-speech command for
// greeting playback. The announcer never overlaps messages: an announcement
// arriving while one is playing is dropped, not queued behind it.
package speech

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mirror/internal/logging"
	"mirror/internal/services"
)

var commandContext = exec.CommandContext

// Options configures a Speaker.
type Options struct {
	Command string
	// ExtraArgs are passed before the message. The placeholders {language}
	// and {message} are substituted; without a {message} placeholder the
	// message text is appended as the final argument.
	ExtraArgs []string
	// Ceiling force-frees the announcer when the command hangs.
	Ceiling time.Duration
}

// Speaker runs one TTS command at a time.
type Speaker struct {
	command string
	args    []string
	ceiling time.Duration
	logger  *slog.Logger

	// slot holds one token; taking it means a message is playing.
	slot chan struct{}
}

// New builds a Speaker.
func New(logger *slog.Logger, opts Options) (*Speaker, error) {
	if opts.Command == "" {
		return nil, services.Wrap(services.ErrConfiguration, "speech", "new",
			"speech command is required when speech is enabled", nil)
	}
	if opts.Ceiling <= 0 {
		opts.Ceiling = 20 * time.Second
	}
	s := &Speaker{
		command: opts.Command,
		args:    opts.ExtraArgs,
		ceiling: opts.Ceiling,
		logger:  logger.With(logging.String(logging.FieldComponent, "speech")),
		slot:    make(chan struct{}, 1),
	}
	s.slot <- struct{}{}
	return s, nil
}

// Say plays one message asynchronously. If a message is already playing the
// new one is dropped; the greeting moment has passed by the time the current
// playback ends. Errors are logged, never returned: audio failure must not
// disturb the caller's visual state.
func (s *Speaker) Say(ctx context.Context, message, language string) {
	select {
	case <-s.slot:
	default:
		s.logger.Debug("announcement already playing, dropping message",
			logging.String("language", language))
		return
	}

	go func() {
		defer func() { s.slot <- struct{}{} }()
		if err := s.run(ctx, message, language); err != nil {
			s.logger.Warn("speech playback failed",
				logging.String("language", language),
				logging.String(logging.FieldImpact, "greeting was shown but not spoken"),
				logging.Error(err))
		}
	}()
}

func (s *Speaker) run(ctx context.Context, message, language string) error {
	runCtx, cancel := context.WithTimeout(ctx, s.ceiling)
	defer cancel()

	args := make([]string, 0, len(s.args)+1)
	placed := false
	for _, arg := range s.args {
		arg = strings.ReplaceAll(arg, "{language}", language)
		if strings.Contains(arg, "{message}") {
			arg = strings.ReplaceAll(arg, "{message}", message)
			placed = true
		}
		args = append(args, arg)
	}
	if !placed {
		args = append(args, message)
	}

	cmd := commandContext(runCtx, s.command, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "playback command failed"
		}
		return services.Wrap(services.ErrSink, "speech", "say", detail, err)
	}
	return nil
}
