// Package manifest records what a snapshot contains.
//
// A Manifest lists every regular file and symlink found under a set of
// roots, together with its SHA-256 digest, size, permission bits and
// ownership, plus an optional snapshot of the Easy-RSA CA database. It is
// built once by a Builder and never edited; a new capture is a new Manifest.
//
// # Wire Format
//
// Manifests are stored as manifest.json inside every archive:
//
//	{
//	  "version": 1,
//	  "created_at": "2025-01-31T12:00:00Z",
//	  "roots": ["/etc/openvpn"],
//	  "files": [
//	    {"path": "/etc/openvpn/server.conf", "sha256": "...",
//	     "size": 812, "mode": "0o644", "uid": 0, "gid": 0}
//	  ],
//	  "openvpn_pki": {"pki_root": "...", "index_sha256": "...",
//	                  "serial": "0A", "clients": [...]}
//	}
//
// Mode is written as a Python-style octal string. Decode also accepts plain
// octal strings ("0644") and JSON numbers.
package manifest
