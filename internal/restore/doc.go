// Package restore makes live state match a snapshot.
//
// A restore unpacks an archive into a staging workspace, diffs its manifest
// against the live roots and, unless it is a dry run, moves through these
// phases in order:
//
//	unpacked -> diffed -> purging -> copying -> crl_regen -> service_restart -> done
//
// A dry run stops after diffed with phase dry_run_reported and touches
// nothing. Errors before the purge phase abort the restore. From the purge
// phase on, every per-path failure is recorded in the Report and the
// restore carries on. The staging workspace is removed on every exit path.
package restore
