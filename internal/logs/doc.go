// Package logs reads the daemon's log file back for diagnostics: last-N
// tailing, offset-resumed reads, bounded follow-mode waits, and severity
// filtering over both the console and JSON output formats. It backs the
// LogTail IPC call and `mirror logs --follow`.
package logs
