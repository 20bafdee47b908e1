package commands

import (
	"fmt"
	"io"

	"github.com/thoreinstein/ovsnap/internal/cli"
	"github.com/thoreinstein/ovsnap/internal/diff"
	"github.com/thoreinstein/ovsnap/internal/restore"
)

// maxListed caps each path list in text output; -v shows everything.
const maxListed = 20

func writeDiff(w io.Writer, p *cli.Printer, d *diff.Report, purge bool) {
	if d == nil || d.Empty() {
		fmt.Fprintf(w, "%s live files match the archive\n", p.OK("✓"))
		return
	}
	extraVerb := "not in archive (kept)"
	if purge {
		extraVerb = "not in archive (will be deleted)"
	}
	writePaths(w, p, p.Fail("-"), extraVerb, d.Extra)
	writePaths(w, p, p.OK("+"), "missing (will be restored)", d.Missing)
	writePaths(w, p, p.Warn("~"), "changed (will be overwritten)", d.Changed)
}

func writePaths(w io.Writer, p *cli.Printer, mark, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s:\n", p.Bold(cli.Count(len(paths))), title)
	for i, path := range paths {
		if i == maxListed && verbosity == 0 {
			fmt.Fprintf(w, "  %s\n", p.Dim(fmt.Sprintf("... %d more (use -v)", len(paths)-maxListed)))
			break
		}
		fmt.Fprintf(w, "  %s %s\n", mark, path)
	}
}

func writeRestore(w io.Writer, p *cli.Printer, rep *restore.Report) {
	fmt.Fprintf(w, "%s %s\n", p.Bold("restore"), rep.ID)
	fmt.Fprintf(w, "  archive: %s\n", rep.Archive)
	fmt.Fprintf(w, "  purge:   %s\n", rep.PurgeMode)
	writeDiff(w, p, rep.Diff, rep.PurgeMode == restore.PurgeStrict)

	if rep.DryRun {
		fmt.Fprintf(w, "%s dry run, nothing changed\n", p.Dim("ℹ"))
		return
	}

	fmt.Fprintf(w, "purged %d, copied %d, skipped %d\n",
		restore.Count(rep.Purged, restore.StatusOK),
		restore.Count(rep.Copied, restore.StatusOK),
		restore.Count(rep.Purged, restore.StatusSkipped)+restore.Count(rep.Copied, restore.StatusSkipped))
	for _, f := range rep.Failed() {
		fmt.Fprintf(w, "  %s %s %s: %s\n", p.Fail("✗"), f.Action, f.Path, f.Reason)
	}

	if rep.CRL != nil {
		mark := p.OK("✓")
		if !rep.CRL.OK {
			mark = p.Warn("⚠")
		}
		fmt.Fprintf(w, "%s CRL: %s\n", mark, rep.CRL.Message)
	}
	if rep.Service != nil {
		mark := p.OK("✓")
		switch {
		case rep.Service.Status == "skipped":
			mark = p.Dim("ℹ")
		case rep.Service.Status != "OK":
			mark = p.Fail("✗")
		}
		fmt.Fprintf(w, "%s service: %s\n", mark, rep.Service.Status)
	}
}
