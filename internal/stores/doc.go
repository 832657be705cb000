// Package stores provides the Redis-backed state that outlives a single
// request: refresh-token records, the access-token blacklist, and captcha
// challenges.
//
// # Design
//
// Refresh-token records are JSON documents with a TTL. Rotation is a single
// Lua script so that read, reuse check, revocation and replacement happen
// atomically; a record that has already been rotated keeps its TTL after
// revocation, which is what makes reuse detectable until natural expiry.
// Captcha consumption is likewise a single Lua GET+DEL, so a challenge is
// spent on the first validation attempt regardless of outcome.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control only. It does NOT
// issue tokens, generate challenge codes, or decide what a reuse event means
// for the caller. Those decisions belong to the engine in the root package.
//
// # What this package must NOT do
//
//   - Import authkit or any sibling internal package.
//   - Log or expose challenge answers or token material.
//   - Use non-constant-time comparisons for secret matching.
package stores
