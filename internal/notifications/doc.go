// Package notifications delivers caregiver alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. A
// small dedup window keeps a flapping camera or a lingering visitor from
// flooding the caregiver's phone.
//
// Extend this package if you need alternative transports; daemon code depends
// only on the simple Service interface.
package notifications
