package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable marks a dead or missing frame source. Fatal to the
	// pipeline run loop; the process degrades to a camera-error display.
	ErrSourceUnavailable = errors.New("frame source unavailable")
	// ErrAdapter marks a recognition adapter failure; degrades to "no match".
	ErrAdapter = errors.New("recognition adapter error")
	// ErrTimeout marks a recognition job that exceeded its ceiling.
	ErrTimeout = errors.New("recognition timeout")
	// ErrProfileStore marks a missing or corrupt profile database.
	ErrProfileStore = errors.New("profile store error")
	// ErrSink marks a presentation sink failure (display or audio).
	ErrSink = errors.New("presentation sink error")
	// ErrConfiguration marks unusable configuration detected at wiring time.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrAdapter
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error must terminate the pipeline run loop.
func Fatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
