package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// pollInterval paces follow-mode checks for appended lines.
const pollInterval = 250 * time.Millisecond

// scanBufferSize bounds a single log line; attr-heavy records stay well
// under it.
const scanBufferSize = 1024 * 1024

// TailOptions selects which part of the daemon log to read.
type TailOptions struct {
	// Offset is the byte position to resume from. Negative means "the last
	// Limit lines of the file".
	Offset int64
	// Limit caps how many trailing lines a negative-offset read returns.
	Limit int
	// Follow, together with Wait, blocks up to Wait for new lines when the
	// read position is already at the end of the file.
	Follow bool
	Wait   time.Duration
	// MinLevel drops lines below the given severity ("debug", "info",
	// "warn", "error"). Empty keeps every line. Lines whose severity cannot
	// be determined are kept so multi-line payloads survive filtering.
	MinLevel string
}

// TailResult carries the returned lines and the byte offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads the daemon log at path. A missing file is not an error: the
// daemon may simply not have logged yet, so the caller gets an empty result
// and offset zero to retry from.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	keep := levelFilter(opts.MinLevel)

	var (
		lines  []string
		offset int64
		err    error
	)
	if opts.Offset < 0 {
		lines, offset, err = tailEnd(path, opts.Limit, keep)
	} else {
		lines, offset, err = scanFrom(path, opts.Offset, keep)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return awaitLines(ctx, path, offset, opts.Wait, keep)
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// tailEnd scans the whole file, retaining the last limit lines that pass the
// filter, and reports the end-of-file offset for follow-up reads.
func tailEnd(path string, limit int, keep func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var lines []string
	if limit > 0 {
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
		for scanner.Scan() {
			line := scanner.Text()
			if !keep(line) {
				continue
			}
			if len(lines) == limit {
				copy(lines, lines[1:])
				lines = lines[:limit-1]
			}
			lines = append(lines, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, offset, nil
}

// scanFrom reads every complete line at or after offset. An offset beyond the
// current size (a rotated or truncated file) clamps to the end rather than
// failing.
func scanFrom(path string, offset int64, keep func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = info.Size()
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	var lines []string
	for scanner.Scan() {
		if line := scanner.Text(); keep(line) {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

// awaitLines polls for appended lines until something arrives, the wait
// expires, or the context is canceled.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration, keep func(string) bool) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, newOffset, err := scanFrom(path, result.Offset, keep)
		if err != nil {
			return result, err
		}
		result.Offset = newOffset
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

// levelFilter builds the per-line severity predicate for MinLevel. An empty
// or unrecognized minimum keeps everything.
func levelFilter(min string) func(string) bool {
	threshold, ok := parseLevel(min)
	if !ok {
		return func(string) bool { return true }
	}
	return func(line string) bool {
		level, found := lineLevel(line)
		return !found || level >= threshold
	}
}

func parseLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// lineLevel sniffs the severity of one log line in either daemon output
// format: the console handler's "15:04:05.000 WARN  [component] ..." layout
// or the JSON handler's level field.
func lineLevel(line string) (slog.Level, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		for _, marker := range []struct {
			token string
			level slog.Level
		}{
			{`"level":"DEBUG"`, slog.LevelDebug},
			{`"level":"INFO"`, slog.LevelInfo},
			{`"level":"WARN"`, slog.LevelWarn},
			{`"level":"ERROR"`, slog.LevelError},
		} {
			if strings.Contains(trimmed, marker.token) {
				return marker.level, true
			}
		}
		return 0, false
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return 0, false
	}
	switch fields[1] {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}
