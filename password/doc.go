// Package password provides the default Argon2id password hasher.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The engine treats hashing as a pluggable primitive; this package is the
// default implementation and the only one shipped with the module.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Log plaintext passwords.
package password
