// Package snapshot wires a validated configuration into the capture,
// catalogue, restore and CA components.
//
// A [Manager] is the single entry point used by the CLI:
//
//	mgr, err := snapshot.NewManager(cfg, snapshot.WithLogger(logger))
//	created, err := mgr.Create(ctx)
//	report, err := mgr.Restore(ctx, created.Name, true) // dry run
//
// Every operation builds its exclusion filter from the configured paths and
// suffixes plus the output directory and every archive currently in the
// catalogue, so archives are never captured into later archives and a
// strict restore never purges them.
package snapshot
