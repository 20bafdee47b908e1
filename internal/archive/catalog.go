package archive

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Info describes an archive on disk.
type Info struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Catalog finds archives in a list of directories. The first directory is
// where new archives are written; later ones are searched only.
type Catalog struct {
	Dirs []string
}

// NewCatalog returns a Catalog over dirs, dropping empty and duplicate
// entries.
func NewCatalog(dirs ...string) *Catalog {
	c := &Catalog{}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		d = filepath.Clean(d)
		if !slices.Contains(c.Dirs, d) {
			c.Dirs = append(c.Dirs, d)
		}
	}
	return c
}

// List returns every archive in the catalogue directories, newest first by
// name. When two directories hold the same name, the earlier directory
// wins. Missing directories are ignored.
func (c *Catalog) List() ([]Info, error) {
	seen := make(map[string]struct{})
	var out []Info
	for _, dir := range c.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "reading %s", dir)
		}
		for _, e := range entries {
			name := e.Name()
			if !e.Type().IsRegular() || !IsArchiveName(name) {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, Info{
				Name:    name,
				Path:    filepath.Join(dir, name),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}
	slices.SortFunc(out, func(a, b Info) int {
		return strings.Compare(b.Name, a.Name)
	})
	return out, nil
}

// Locate resolves name to an existing archive. An absolute path is used as
// given; a bare name is looked up in each directory in order.
func (c *Catalog) Locate(name string) (string, error) {
	if filepath.IsAbs(name) {
		if isRegular(name) {
			return filepath.Clean(name), nil
		}
		return "", errors.Wrapf(ErrNotFound, "%s", name)
	}
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return "", errors.Wrapf(ErrNotFound, "%q", name)
	}
	for _, dir := range c.Dirs {
		p := filepath.Join(dir, name)
		if isRegular(p) {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrNotFound, "%s not in %s", name, strings.Join(c.Dirs, ", "))
}

// Delete removes the named archive and returns its path. Only names that
// look like archives can be deleted.
func (c *Catalog) Delete(name string) (string, error) {
	if !IsArchiveName(filepath.Base(name)) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	p, err := c.Locate(name)
	if err != nil {
		return "", err
	}
	if err := os.Remove(p); err != nil {
		return "", errors.Wrapf(err, "deleting %s", p)
	}
	return p, nil
}

// Prune deletes all but the newest keep archives and returns what it
// removed. It stops at the first failure.
func (c *Catalog) Prune(keep int) ([]Info, error) {
	if keep < 0 {
		return nil, errors.Newf("keep must be non-negative, got %d", keep)
	}
	all, err := c.List()
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	var removed []Info
	for _, info := range all[keep:] {
		if err := os.Remove(info.Path); err != nil {
			return removed, errors.Wrapf(err, "pruning %s", info.Name)
		}
		removed = append(removed, info)
	}
	return removed, nil
}

func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
