// Package authkit provides an embeddable authentication and session lifecycle
// engine: credential login with captcha and lockout escalation, RS256 token
// pairs with single-use refresh rotation and reuse detection, logout with
// access-token blacklisting, registration with email verification, and a
// password-reset flow.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] and [Mailer] collaborator interfaces, and value types. All
// internal coordination — refresh-record storage, attempt tracking, captcha
// persistence, audit dispatch — lives under internal/ and is never exported.
//
// The engine owns no user persistence. Callers supply a [UserStore] for the
// user table and a Redis client for everything with a TTL: refresh-token
// records, the access-token blacklist, captcha challenges, and attempt
// counters.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key material in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build, which loads or generates the RSA keypair
//     and fails rather than start without keys).
//   - Import any sub-package that re-imports authkit (no import cycles).
package authkit
