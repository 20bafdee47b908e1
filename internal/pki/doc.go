// Package pki reads the Easy-RSA certificate authority database and keeps
// the published certificate revocation list (CRL) in step with it.
//
// # Index Format
//
// Each non-blank line of pki/index.txt holds whitespace-separated fields:
//
//	V  251231000000Z    01  unknown  /CN=alice
//
// status code (V, R or E), expiry timestamp, revocation date or an unused
// placeholder, serial, and a subject of /KEY=VALUE segments. [ParseIndex]
// extracts a [Client] per line and collects malformed lines instead of
// failing.
//
// # CRL Regeneration
//
// [Regenerator.RegenerateIfPossible] checks that the index, the CA key and
// the Easy-RSA entry point exist, asks the [CATool] for a new CRL and
// publishes it where the VPN daemon reads it. It reports success as a
// boolean and a message and never returns an error or panics.
package pki
