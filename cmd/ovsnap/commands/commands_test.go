package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/config"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/pki"
)

// fakeEasyRSA answers gen-crl by writing pki/crl.pem and revoke by
// recording the name.
const fakeEasyRSA = `#!/bin/sh
case "$1" in
  gen-crl) echo "-----BEGIN X509 CRL-----" > pki/crl.pem ;;
  --batch) echo "$3" >> pki/revoked.log ;;
  *) exit 1 ;;
esac
`

type testHost struct {
	root    string
	config  string
	crlDest string
	layout  pki.Layout
}

func setupHost(t *testing.T) *testHost {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "etc", "openvpn")
	easy := filepath.Join(base, "easy-rsa")
	layout := pki.Layout{EasyRSADir: easy}

	writeFile(t, filepath.Join(root, "server.conf"), "port 1194\n")
	writeFile(t, filepath.Join(root, "ccd", "alice"), "ifconfig-push 10.8.0.2\n")
	writeFile(t, layout.IndexPath(),
		"V\t341231235959Z\t\t01\tunknown\t/CN=alice\n"+
			"R\t341231235959Z\t250101000000Z\t02\tunknown\t/CN=bob\n")
	writeFile(t, layout.CAKeyPath(), "key\n")
	writeFile(t, layout.IssuedCertPath("alice"), "cert\n")
	writeFile(t, layout.ToolPath(), fakeEasyRSA)
	require.NoError(t, os.Chmod(layout.ToolPath(), 0o755))

	cfg := config.Default()
	cfg.Roots = []string{root}
	cfg.OutputDir = filepath.Join(base, "backups")
	cfg.ArchiveDirs = nil
	cfg.StagingDir = filepath.Join(base, "staging")
	cfg.Exclude.Paths = nil
	cfg.StrictPurge = true
	cfg.PKI.EasyRSADir = easy
	cfg.PKI.CRLDest = filepath.Join(base, "crl.pem")
	cfg.PKI.AutoRegenCRL = false
	cfg.Service.Restart = false

	path := filepath.Join(base, "config.yaml")
	require.NoError(t, config.Write(path, cfg, false))

	return &testHost{root: root, config: path, crlDest: cfg.PKI.CRLDest, layout: layout}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// resetFlags puts every flag of c and its children back to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against the host config and returns stdout.
func (h *testHost) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Setenv(debugEnv, "")
	t.Setenv("OVSNAP_CONFIG_DIR", filepath.Dir(h.config))

	prevInteractive := app.Interactive
	app.Interactive = func() bool { return false }
	t.Cleanup(func() { app.Interactive = prevInteractive })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := rootCmd.ExecuteContext(t.Context())
	return stdout.String(), err
}

func (h *testHost) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := h.run(t, append(args, "--format", "json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *errors.ExitError
	require.True(t, errors.As(err, &exitErr), "want ExitError, got %v", err)
	return exitErr.Code
}

func TestCreateListInfo(t *testing.T) {
	h := setupHost(t)

	var created struct {
		Name  string `json:"name"`
		Path  string `json:"path"`
		Files int    `json:"files"`
	}
	h.runJSON(t, &created, "create")
	assert.True(t, archive.IsArchiveName(created.Name), created.Name)
	assert.Equal(t, 2, created.Files)
	assert.FileExists(t, created.Path)

	var list []archive.Info
	h.runJSON(t, &list, "list")
	require.Len(t, list, 1)
	assert.Equal(t, created.Name, list[0].Name)

	out, err := h.run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, created.Name)

	var info struct {
		Files   int  `json:"files"`
		HasPKI  bool `json:"has_pki"`
		Valid   int  `json:"valid"`
		Revoked int  `json:"revoked"`
	}
	h.runJSON(t, &info, "info", created.Name)
	assert.Equal(t, 2, info.Files)
	assert.True(t, info.HasPKI)
	assert.Equal(t, 1, info.Valid)
	assert.Equal(t, 1, info.Revoked)
}

func TestInfo_UnknownArchive(t *testing.T) {
	h := setupHost(t)

	_, err := h.run(t, "info", "openvpn_full_backup_20200101_000000.tar.gz")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))
}

func TestList_Empty(t *testing.T) {
	h := setupHost(t)

	out, err := h.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No archives found.")
}

func TestDiffAndRestore(t *testing.T) {
	h := setupHost(t)

	var created struct {
		Name string `json:"name"`
	}
	h.runJSON(t, &created, "create")

	writeFile(t, filepath.Join(h.root, "server.conf"), "port 443\n")
	writeFile(t, filepath.Join(h.root, "extra.conf"), "stray\n")

	out, err := h.run(t, "diff", created.Name)
	require.NoError(t, err)
	assert.Contains(t, out, "extra.conf")
	assert.Contains(t, out, "server.conf")

	// Nothing changed yet.
	assert.FileExists(t, filepath.Join(h.root, "extra.conf"))

	_, err = h.run(t, "restore", created.Name)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfirmationRequired))
	assert.FileExists(t, filepath.Join(h.root, "extra.conf"))

	out, err = h.run(t, "restore", created.Name, "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "dry run")
	assert.FileExists(t, filepath.Join(h.root, "extra.conf"))

	out, err = h.run(t, "restore", created.Name, "--yes")
	require.NoError(t, err, out)
	assert.NoFileExists(t, filepath.Join(h.root, "extra.conf"))
	data, err := os.ReadFile(filepath.Join(h.root, "server.conf"))
	require.NoError(t, err)
	assert.Equal(t, "port 1194\n", string(data))

	out, err = h.run(t, "diff", created.Name)
	require.NoError(t, err)
	assert.Contains(t, out, "live files match the archive")
}

func TestRestore_NoPurge(t *testing.T) {
	h := setupHost(t)

	var created struct {
		Name string `json:"name"`
	}
	h.runJSON(t, &created, "create")
	writeFile(t, filepath.Join(h.root, "extra.conf"), "stray\n")

	_, err := h.run(t, "restore", created.Name, "--yes", "--no-purge")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.root, "extra.conf"))
}

func TestRestore_NoArchiveWithoutTerminal(t *testing.T) {
	h := setupHost(t)

	_, err := h.run(t, "restore", "--yes")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))
}

func TestPruneAndDelete(t *testing.T) {
	h := setupHost(t)

	var first, second, third struct {
		Name string `json:"name"`
	}
	h.runJSON(t, &first, "create")
	h.runJSON(t, &second, "create")
	h.runJSON(t, &third, "create")

	var dry struct {
		DryRun  bool           `json:"dry_run"`
		Removed []archive.Info `json:"removed"`
	}
	h.runJSON(t, &dry, "prune", "--keep", "2", "--dry-run")
	assert.True(t, dry.DryRun)
	assert.Len(t, dry.Removed, 1)

	var list []archive.Info
	h.runJSON(t, &list, "list")
	assert.Len(t, list, 3)

	var pruned struct {
		Removed []archive.Info `json:"removed"`
	}
	h.runJSON(t, &pruned, "prune", "--keep", "2")
	assert.Len(t, pruned.Removed, 1)

	h.runJSON(t, &list, "list")
	require.Len(t, list, 2)

	out, err := h.run(t, "delete", list[0].Name, list[1].Name)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	h.runJSON(t, &list, "list")
	assert.Empty(t, list)

	_, err = h.run(t, "rm", "not-an-archive.txt")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))
}

func TestPKIClients(t *testing.T) {
	h := setupHost(t)

	var clients []pki.Client
	h.runJSON(t, &clients, "pki", "clients")
	require.Len(t, clients, 2)
	assert.Equal(t, "alice", clients[0].CN)

	out, err := h.run(t, "pki", "clients", "--status", "revoked")
	require.NoError(t, err)
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "alice")

	_, err = h.run(t, "pki", "clients", "--status", "bogus")
	require.Error(t, err)
}

func TestPKIRevokeAndCRL(t *testing.T) {
	h := setupHost(t)

	var res pki.RevokeResult
	h.runJSON(t, &res, "pki", "revoke", "alice", "nobody")
	assert.ElementsMatch(t, []string{"alice", "nobody"}, res.Revoked)
	assert.Empty(t, res.Failed)
	assert.True(t, res.CRL.OK, res.CRL.Message)
	assert.FileExists(t, h.crlDest)

	revoked, err := os.ReadFile(filepath.Join(h.layout.PKIDir(), "revoked.log"))
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(revoked))

	_, err = h.run(t, "pki", "revoke", "-rf")
	require.Error(t, err)

	require.NoError(t, os.Remove(h.crlDest))
	out, err := h.run(t, "pki", "crl")
	require.NoError(t, err, out)
	assert.FileExists(t, h.crlDest)
	info, err := os.Stat(h.crlDest)
	require.NoError(t, err)
	assert.Equal(t, pki.CRLPerm, info.Mode().Perm())
}

func TestPKIRevoke_InvalidName(t *testing.T) {
	h := setupHost(t)

	_, err := h.run(t, "pki", "revoke", "--", "../etc")
	require.Error(t, err)
	assert.Equal(t, errors.ExitSystem, exitCode(t, err))
}

func TestDoctor(t *testing.T) {
	h := setupHost(t)

	out, err := h.run(t, "doctor", "--all")
	if err != nil {
		assert.NotEqual(t, 0, exitCode(t, err))
	}
	assert.Contains(t, out, "Summary:")
	assert.Contains(t, out, "roots")

	var report struct {
		Results []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"results"`
	}
	out, _ = h.run(t, "doctor", "--format", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	require.NotEmpty(t, report.Results)
	for _, r := range report.Results {
		if r.Name == "pki" {
			assert.Equal(t, "pass", r.Status)
		}
	}
}

func TestDoctor_InvalidConfigStillRuns(t *testing.T) {
	h := setupHost(t)
	writeFile(t, h.config, "version: 1\nroots: [relative]\n")

	out, err := h.run(t, "doctor")
	require.Error(t, err)
	assert.Equal(t, errors.ExitSystem, exitCode(t, err))
	assert.Contains(t, out, "config")

	_, err = h.run(t, "list")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))
}

func TestConfigShowAndPath(t *testing.T) {
	h := setupHost(t)

	out, err := h.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "strict_purge: true")
	assert.Contains(t, out, h.root)

	out, err = h.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, h.config, strings.TrimSpace(out))

	out, err = h.run(t, "config", "--format", "json")
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, []string{h.root}, cfg.Roots)
}

func TestConfigShow_EnvOverride(t *testing.T) {
	h := setupHost(t)
	t.Setenv("OVSNAP_RETENTION", "7")

	var cfg config.Config
	h.runJSON(t, &cfg, "config", "show")
	assert.Equal(t, 7, cfg.Retention)
}

func TestConfigInit(t *testing.T) {
	h := setupHost(t)
	path := filepath.Join(t.TempDir(), "new.yaml")

	out, err := h.run(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = h.run(t, "config", "init", "--path", path)
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))

	_, err = h.run(t, "config", "init", "--path", path, "--force")
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Roots, cfg.Roots)
}

func TestConfigEdit(t *testing.T) {
	h := setupHost(t)

	prev := openEditor
	t.Cleanup(func() { openEditor = prev })

	var opened string
	openEditor = func(path string) error {
		opened = path
		return nil
	}
	out, err := h.run(t, "config", "edit")
	require.NoError(t, err)
	assert.Equal(t, h.config, opened)
	assert.Contains(t, out, "is valid")

	openEditor = func(path string) error {
		return os.WriteFile(path, []byte("version: 9\n"), 0o600)
	}
	_, err = h.run(t, "config", "edit")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrUnsupportedVersion))
}

func TestVersion(t *testing.T) {
	h := setupHost(t)

	out, err := h.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ovsnap")

	var info map[string]string
	h.runJSON(t, &info, "version")
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "commit")
}

func TestUnknownFormat(t *testing.T) {
	h := setupHost(t)

	_, err := h.run(t, "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, exitCode(t, err))
}

func TestGenDoc(t *testing.T) {
	h := setupHost(t)
	dir := t.TempDir()

	_, err := h.run(t, "gen-doc", "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ovsnap.md"))
	assert.FileExists(t, filepath.Join(dir, "ovsnap_pki_revoke.md"))

	data, err := os.ReadFile(filepath.Join(dir, "ovsnap_restore.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\ntitle: \"ovsnap restore\""))

	_, err = h.run(t, "gen-doc", "--dir", dir, "--kind", "man")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ovsnap-restore.8"))

	_, err = h.run(t, "gen-doc", "--dir", dir, "--kind", "pdf")
	require.Error(t, err)
}
