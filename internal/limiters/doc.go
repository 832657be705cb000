// Package limiters tracks failed authentication attempts and escalates a key
// through captcha gating into a temporary lockout.
//
// # Limiters
//
//   - [AttemptTracker] — fixed-window failure counter with captcha and lock
//     thresholds; one instance per namespace (login, password reset).
//   - [Cooldown] — minimum interval between successful sensitive operations,
//     used for password-reset request throttling.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace. Policy thresholds come from
// Config structs supplied at construction time; what a given state means for
// the request (deny, require captcha) is decided by the engine.
//
// # What this package must NOT do
//
//   - Import authkit or any sibling internal package.
//   - Make policy decisions beyond counting and state classification.
package limiters
