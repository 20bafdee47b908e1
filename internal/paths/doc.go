// Package paths provides path resolution and path arithmetic shared by the
// snapshot components.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg to locate the ovsnap configuration
// directory (~/.config/ovsnap on Linux).
//
// # Archive Names
//
// Captured roots are stored in archives under their absolute path with the
// leading separator stripped, as produced by [ArchiveName]:
//
//	paths.ArchiveName("/etc/openvpn") // "etc/openvpn"
//
// # Scope Checks
//
// [Within] reports whether a path lies under one of a set of roots, compared
// lexically after cleaning. It never resolves symlinks.
package paths
