// Package internal contains helpers that are intentionally private to
// authkit, including secure random token generation.
//
// # Sub-packages
//
//   - audit — async security-event dispatch (Dispatcher + Sink implementations)
//   - limiters — Redis-backed failed-attempt tracking with captcha/lockout escalation
//   - metrics — lock-free operation counters
//   - stores — Redis-backed refresh-token, blacklist, and captcha stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
