// Package config loads, validates, and normalizes mirror configuration.
//
// Configuration lives in a TOML file (default ~/.config/mirror/config.toml,
// with a project-local mirror.toml fallback). Load applies defaults first, so
// a missing file yields a runnable demo configuration. All path fields are
// expanded and absolute after Load returns.
package config
