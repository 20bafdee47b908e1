package restore

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/thoreinstein/ovsnap/internal/manifest"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

// Remover deletes paths. Tests substitute it to observe deletion order.
type Remover interface {
	Remove(path string) error
	RemoveAll(path string) error
}

type osRemover struct{}

func (osRemover) Remove(path string) error    { return os.Remove(path) }
func (osRemover) RemoveAll(path string) error { return os.RemoveAll(path) }

// purgePlan orders extra for deletion together with the directories that
// only held extra paths. Directories that contain a recorded path, and the
// roots themselves, are never planned. The order is longest path first,
// then lexicographic, so children always precede their parents.
func purgePlan(roots []string, recorded map[string]manifest.File, extra []string) (order []string, derived map[string]bool) {
	keep := make(map[string]bool)
	for p := range recorded {
		for d := filepath.Dir(p); !keep[d]; d = filepath.Dir(d) {
			keep[d] = true
			if d == filepath.Dir(d) {
				break
			}
		}
	}
	isRoot := make(map[string]bool, len(roots))
	for _, r := range roots {
		isRoot[filepath.Clean(r)] = true
	}

	seen := make(map[string]bool)
	derived = make(map[string]bool)
	for _, p := range extra {
		if !seen[p] {
			seen[p] = true
			order = append(order, p)
		}
		for d := filepath.Dir(p); !isRoot[d] && !keep[d] && !seen[d]; d = filepath.Dir(d) {
			if d == filepath.Dir(d) || !paths.Within(d, roots) {
				break
			}
			seen[d] = true
			derived[d] = true
			order = append(order, d)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if len(order[i]) != len(order[j]) {
			return len(order[i]) > len(order[j])
		}
		return order[i] < order[j]
	})
	return order, derived
}

// purge deletes extra paths and the directories emptied by doing so.
// Failures are recorded per path and never stop the purge.
func (e *Executor) purge(manifestRoots []string, recorded map[string]manifest.File, extra []string, log *slog.Logger) []ItemResult {
	rm := e.Remover
	if rm == nil {
		rm = osRemover{}
	}
	guard := e.Roots
	if len(guard) == 0 {
		guard = manifestRoots
	}

	order, derived := purgePlan(manifestRoots, recorded, extra)
	results := make([]ItemResult, 0, len(order))
	for _, p := range order {
		res := ItemResult{Path: p, Action: ActionDelete, Status: StatusOK}

		info, err := os.Lstat(p)
		switch {
		case err != nil && os.IsNotExist(err):
			res.Status, res.Reason = StatusSkipped, "already gone"
		case err != nil:
			res.Status, res.Reason = StatusFailed, err.Error()
		case !info.IsDir():
			err = rm.Remove(p)
		case !paths.Within(p, guard):
			res.Status, res.Reason = StatusSkipped, "directory outside configured roots"
		case derived[p]:
			// Only empty directories: anything left is excluded from view.
			if entries, rerr := os.ReadDir(p); rerr != nil || len(entries) > 0 {
				res.Status, res.Reason = StatusSkipped, "directory not empty"
			} else {
				err = rm.Remove(p)
			}
		default:
			err = rm.RemoveAll(p)
		}
		if err != nil && res.Status == StatusOK {
			res.Status, res.Reason = StatusFailed, err.Error()
		}

		switch res.Status {
		case StatusFailed:
			log.Warn("purge failed", "path", p, "error", res.Reason)
		case StatusSkipped:
			log.Debug("purge skipped", "path", p, "reason", res.Reason)
		default:
			log.Debug("purged", "path", p)
		}
		results = append(results, res)
	}
	return results
}
