// Package password hashes and checks account passwords with Argon2id.
//
// Hashes use the PHC string layout
//
//	$argon2id$v=19$m=<memory>,t=<iterations>,p=<threads>$<salt>$<key>
//
// so parameters can be raised later without invalidating stored hashes.
// The package never stores passwords and never logs them.
package password
