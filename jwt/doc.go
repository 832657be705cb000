// Package jwt issues and validates the signed access and refresh tokens used
// by the authentication engine.
//
// # Design
//
// Tokens are RS256 JWTs signed with the keypair held by the keys.Manager.
// Claims carry the subject (user email), role, token type ("access" or
// "refresh"), a unique token id, issue/expiry timestamps, and the issuer.
// Validation is a pure function of the token string and the currently active
// verify key: no store round-trips, no side effects. Regenerating the
// keypair therefore invalidates every previously issued token at once.
//
// # What this package must NOT do
//
//   - Persist anything — refresh-token records and blacklists live elsewhere.
//   - Import the root authkit package or any internal package.
package jwt
