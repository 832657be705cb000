// Package audit defines the security-event model and the asynchronous
// dispatcher that feeds events to a caller-supplied sink.
//
// Events cover the authentication lifecycle: login outcomes, captcha and
// lockout escalations, token refresh and reuse detection, logout, registration
// and email verification, and password resets. Emission never blocks the
// authentication path beyond the configured buffer; when DropIfFull is set,
// overflow is counted instead of waited on.
//
// # What this package must NOT do
//
//   - Record plaintext credentials, tokens, or captcha answers in events.
//   - Let a slow sink stall an authentication operation.
package audit
