package doctor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/config"
	"github.com/thoreinstein/ovsnap/internal/paths"
	"github.com/thoreinstein/ovsnap/internal/pki"
)

// Checks returns the standard check set for cfg. configPath is the file
// cfg was loaded from, or "" when defaults were used.
func Checks(cfg *config.Config, configPath string) []Check {
	return []Check{
		&ConfigCheck{Config: cfg, Path: configPath},
		&RootsCheck{Roots: cfg.Roots, Staging: cfg.StagingDir},
		&OutputDirCheck{Dir: cfg.OutputDir},
		&ArchivePermissionCheck{Catalog: archive.NewCatalog(append([]string{cfg.OutputDir}, cfg.ArchiveDirs...)...)},
		&PKICheck{Layout: pki.Layout{EasyRSADir: cfg.PKI.EasyRSADir}, CRLDest: cfg.PKI.CRLDest, AutoRegen: cfg.PKI.AutoRegenCRL},
		&ServiceCheck{Restart: cfg.Service.Restart, Units: cfg.Service.Units},
	}
}

func result(c Check, status Severity, msg string) *CheckResult {
	return &CheckResult{Name: c.Name(), Category: c.Category(), Status: status, Message: msg}
}

func fromIssues(c Check, issues []issue, passMsg string) *CheckResult {
	if len(issues) == 0 {
		return result(c, SeverityPass, passMsg)
	}
	res := result(c, SeverityPass, "")
	for _, i := range issues {
		res.Status = worst(res.Status, i.Severity)
		res.Problems = append(res.Problems, i.String())
		if i.Fix != fixNone {
			res.Fixable = true
		}
	}
	res.Message = fmt.Sprintf("%d issue(s) found", len(issues))
	if res.Fixable {
		res.FixHint = "run: ovsnap doctor --fix"
	}
	return res
}

func formatPermissions(mode os.FileMode) string {
	return mode.Perm().String()
}

func formatOctal(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

// ConfigCheck validates the configuration and the file it came from.
type ConfigCheck struct {
	PermissionFixer

	Config *config.Config
	Path   string
}

var (
	_ Check = (*ConfigCheck)(nil)
	_ Fixer = (*ConfigCheck)(nil)
)

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "config" }

// Run checks YAML syntax, file permissions and field validity.
func (c *ConfigCheck) Run() *CheckResult {
	var issues []issue

	if c.Path != "" {
		issues = append(issues, checkConfigFile(c.Path)...)
	}
	for _, err := range config.Validate(c.Config) {
		issues = append(issues, issue{Path: "config", Problem: err.Error(), Severity: SeverityError})
	}
	c.setIssues(issues)

	src := c.Path
	if src == "" {
		src = "built-in defaults"
	}
	res := fromIssues(c, issues, "configuration valid ("+src+")")
	if res.Status == SeverityError && res.FixHint == "" {
		res.FixHint = "edit the config file or run: ovsnap config init --force"
	}
	return res
}

func checkConfigFile(path string) []issue {
	info, err := os.Stat(path)
	if err != nil {
		return []issue{{Path: path, Problem: fmt.Sprintf("cannot stat: %v", err), Severity: SeverityError}}
	}

	var issues []issue
	if perm := info.Mode().Perm(); perm&0o022 != 0 {
		issues = append(issues, issue{
			Path:     path,
			Problem:  fmt.Sprintf("writable by group or others (mode %s, expected %s)", formatPermissions(info.Mode()), formatOctal(privateFilePerm)),
			Severity: SeverityWarning,
			Fix:      fixChmod,
			Perm:     privateFilePerm,
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return append(issues, issue{Path: path, Problem: "not readable", Severity: SeverityError})
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		issues = append(issues, issue{Path: path, Problem: strings.TrimPrefix(err.Error(), "yaml: "), Severity: SeverityError})
	}
	return issues
}

// RootsCheck verifies that every capture root is a listable directory. A
// root may be a symlink to one.
type RootsCheck struct {
	Roots []string

	// Staging is the configured staging root, "" for the system temp dir.
	Staging string
}

var _ Check = (*RootsCheck)(nil)

func (c *RootsCheck) Name() string     { return "roots" }
func (c *RootsCheck) Category() string { return "filesystem" }

// Run reports missing roots as warnings; snapshots record nothing for them.
func (c *RootsCheck) Run() *CheckResult {
	var issues []issue
	for _, root := range c.Roots {
		info, err := os.Stat(root)
		switch {
		case os.IsNotExist(err):
			issues = append(issues, issue{Path: root, Problem: "does not exist, nothing will be captured", Severity: SeverityWarning})
		case err != nil:
			issues = append(issues, issue{Path: root, Problem: fmt.Sprintf("cannot stat: %v", err), Severity: SeverityError})
		case !info.IsDir():
			issues = append(issues, issue{Path: root, Problem: "not a directory", Severity: SeverityError})
		default:
			if err := listable(root); err != nil {
				issues = append(issues, issue{Path: root, Problem: "cannot be listed", Severity: SeverityError})
			}
		}
	}
	if c.Staging != "" && paths.Within(c.Staging, c.Roots) {
		issues = append(issues, issue{Path: c.Staging, Problem: "staging directory lies inside a root and is excluded from snapshots", Severity: SeverityInfo})
	}
	return fromIssues(c, issues, fmt.Sprintf("all %d roots readable", len(c.Roots)))
}

func listable(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// OutputDirCheck verifies that new archives can be written.
type OutputDirCheck struct {
	PermissionFixer

	Dir string
}

var (
	_ Check = (*OutputDirCheck)(nil)
	_ Fixer = (*OutputDirCheck)(nil)
)

func (c *OutputDirCheck) Name() string     { return "output-dir" }
func (c *OutputDirCheck) Category() string { return "filesystem" }

// Run checks existence, writability and privacy of the output directory.
func (c *OutputDirCheck) Run() *CheckResult {
	issues := c.inspect()
	c.setIssues(issues)
	return fromIssues(c, issues, c.Dir+" is writable")
}

func (c *OutputDirCheck) inspect() []issue {
	info, err := os.Stat(c.Dir)
	if os.IsNotExist(err) {
		return []issue{{Path: c.Dir, Problem: "does not exist, created on first snapshot", Severity: SeverityInfo, Fix: fixMkdir, Perm: privateDirPerm}}
	}
	if err != nil {
		return []issue{{Path: c.Dir, Problem: fmt.Sprintf("cannot stat: %v", err), Severity: SeverityError}}
	}
	if !info.IsDir() {
		return []issue{{Path: c.Dir, Problem: "expected directory but found file", Severity: SeverityError}}
	}

	var issues []issue
	if !isDirectoryWritable(c.Dir) {
		issues = append(issues, issue{Path: c.Dir, Problem: "directory is not writable", Severity: SeverityError})
	}
	if info.Mode().Perm()&0o077 != 0 {
		issues = append(issues, issue{
			Path:     c.Dir,
			Problem:  fmt.Sprintf("accessible by group or others (mode %s)", formatPermissions(info.Mode())),
			Severity: SeverityWarning,
			Fix:      fixChmod,
			Perm:     privateDirPerm,
		})
	}
	return issues
}

func isDirectoryWritable(path string) bool {
	f, err := os.CreateTemp(path, ".ovsnap-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// ArchivePermissionCheck flags archives readable by anyone but the owner.
// Archives carry the CA private key.
type ArchivePermissionCheck struct {
	PermissionFixer

	Catalog *archive.Catalog
}

var (
	_ Check = (*ArchivePermissionCheck)(nil)
	_ Fixer = (*ArchivePermissionCheck)(nil)
)

func (c *ArchivePermissionCheck) Name() string     { return "archive-permissions" }
func (c *ArchivePermissionCheck) Category() string { return "filesystem" }

// Run lists the catalogue and checks each archive's mode.
func (c *ArchivePermissionCheck) Run() *CheckResult {
	list, err := c.Catalog.List()
	if err != nil {
		c.setIssues(nil)
		return result(c, SeverityError, err.Error())
	}

	var issues []issue
	for _, a := range list {
		info, err := os.Stat(a.Path)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o077 != 0 {
			issues = append(issues, issue{
				Path:     a.Path,
				Problem:  fmt.Sprintf("accessible by group or others (mode %s)", formatPermissions(info.Mode())),
				Severity: SeverityWarning,
				Fix:      fixChmod,
				Perm:     privateFilePerm,
			})
		}
	}
	c.setIssues(issues)
	return fromIssues(c, issues, fmt.Sprintf("%d archive(s), all private", len(list)))
}

// PKICheck verifies the Easy-RSA installation needed for CRL regeneration.
type PKICheck struct {
	Layout    pki.Layout
	CRLDest   string
	AutoRegen bool
}

var _ Check = (*PKICheck)(nil)

func (c *PKICheck) Name() string     { return "pki" }
func (c *PKICheck) Category() string { return "pki" }

// Run reports a missing CA as informational and a partial one as a warning.
func (c *PKICheck) Run() *CheckResult {
	if _, err := os.Stat(c.Layout.IndexPath()); os.IsNotExist(err) {
		return result(c, SeverityInfo, "no CA index at "+c.Layout.IndexPath()+", PKI features inactive")
	}

	var issues []issue
	for _, p := range []struct{ name, path string }{
		{"ca.key", c.Layout.CAKeyPath()},
		{"easyrsa", c.Layout.ToolPath()},
	} {
		if _, err := os.Stat(p.path); err != nil {
			issues = append(issues, issue{Path: p.path, Problem: p.name + " missing, CRL cannot be regenerated", Severity: SeverityWarning})
		}
	}
	if c.CRLDest != "" {
		if _, err := os.Stat(filepath.Dir(c.CRLDest)); err != nil {
			issues = append(issues, issue{Path: c.CRLDest, Problem: "parent directory missing", Severity: SeverityWarning})
		}
	}

	snap, warnings := pki.ReadSnapshot(c.Layout)
	for _, w := range warnings {
		issues = append(issues, issue{Path: c.Layout.IndexPath(), Problem: w.Error(), Severity: SeverityWarning})
	}

	valid, revoked := snap.Counts()
	msg := fmt.Sprintf("CA index: %d valid, %d revoked", valid, revoked)
	if !c.AutoRegen {
		msg += " (auto CRL regeneration disabled)"
	}
	res := fromIssues(c, issues, msg)
	if len(issues) > 0 {
		res.Message = msg + "; " + res.Message
	}
	return res
}

// ServiceCheck verifies that the VPN service can be restarted.
type ServiceCheck struct {
	Restart bool
	Units   []string

	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

var _ Check = (*ServiceCheck)(nil)

func (c *ServiceCheck) Name() string     { return "service" }
func (c *ServiceCheck) Category() string { return "service" }

// Run looks for systemctl when restarts are enabled.
func (c *ServiceCheck) Run() *CheckResult {
	if !c.Restart {
		return result(c, SeverityInfo, "service restart disabled")
	}
	look := c.LookPath
	if look == nil {
		look = exec.LookPath
	}
	if _, err := look("systemctl"); err != nil {
		res := result(c, SeverityWarning, "systemctl not found, restores will report a failed restart")
		res.FixHint = "set service.restart: false on hosts without systemd"
		return res
	}
	return result(c, SeverityPass, "restarts "+strings.Join(c.Units, " or "))
}
