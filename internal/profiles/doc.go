// Package profiles persists enrolled people, their face encodings, and the
// recognition history in SQLite.
//
// The store is read-mostly: profiles load once at daemon startup and feed
// the enrollment index; history rows append as people are recognized. A
// missing or corrupt database degrades to an empty profile set at the
// caller, never a crash.
package profiles
