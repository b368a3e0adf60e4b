// Package services defines the shared error taxonomy for mirror components.
//
// Components wrap failures with a sentinel marker so callers can classify
// them with errors.Is without string matching. Only ErrSourceUnavailable is
// allowed to escape the core pipeline; every other marker is absorbed at the
// component that detects it and degraded to a benign presentation state.
package services
