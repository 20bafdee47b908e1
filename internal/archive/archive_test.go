package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/manifest"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

var captured = time.Date(2025, 1, 31, 12, 30, 45, 0, time.UTC)

func write(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
}

type fixture struct {
	root   string
	out    string
	filter *exclude.Filter
	m      *manifest.Manifest
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "etc", "openvpn")
	write(t, filepath.Join(root, "server.conf"), "port 1194\n", 0o644)
	write(t, filepath.Join(root, "ccd", "alice"), "ifconfig-push 10.8.0.2\n", 0o600)
	write(t, filepath.Join(root, "server.log"), "noise\n", 0o644)
	require.NoError(t, os.Symlink("server.conf", filepath.Join(root, "current.conf")))

	filter := exclude.New(nil, []string{".log"})
	b := &manifest.Builder{
		Filter: filter,
		Clock:  func() time.Time { return captured },
		Logger: logging.ForTest(t),
	}
	m, err := b.Build([]string{root})
	require.NoError(t, err)

	return &fixture{root: root, out: t.TempDir(), filter: filter, m: m}
}

func (f *fixture) pack(t *testing.T) string {
	t.Helper()
	p := &Packer{Filter: f.filter, TempDir: t.TempDir(), Logger: logging.ForTest(t)}
	path, err := p.Pack(f.m, f.m.Roots, f.out)
	require.NoError(t, err)
	return path
}

func entryNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "openvpn_full_backup_20250131_123045.tar.gz", Name(captured, 0))
	assert.Equal(t, "openvpn_full_backup_20250131_123045_2.tar.gz", Name(captured, 2))

	assert.True(t, IsArchiveName(Name(captured, 0)))
	assert.True(t, IsArchiveName(Name(captured, 3)))
	assert.False(t, IsArchiveName("openvpn_full_backup_latest.tar.gz"))
	assert.False(t, IsArchiveName("other_20250131_123045.tar.gz"))
	assert.False(t, IsArchiveName("../openvpn_full_backup_20250131_123045.tar.gz"))
}

func TestPack_SymlinkedRoot(t *testing.T) {
	f := newFixture(t)
	link := filepath.Join(t.TempDir(), "openvpn")
	require.NoError(t, os.Symlink(f.root, link))

	b := &manifest.Builder{Filter: f.filter, Clock: func() time.Time { return captured }}
	m, err := b.Build([]string{link})
	require.NoError(t, err)
	f.m = m

	names := entryNames(t, f.pack(t))
	prefix := paths.ArchiveName(link)
	assert.Contains(t, names, prefix+"/")
	assert.Contains(t, names, prefix+"/server.conf")
	assert.Contains(t, names, prefix+"/ccd/alice")
	assert.NotContains(t, names, prefix, "root stored as a directory, not a link")
}

func TestPack_Layout(t *testing.T) {
	f := newFixture(t)
	path := f.pack(t)

	assert.Equal(t, filepath.Join(f.out, "openvpn_full_backup_20250131_123045.tar.gz"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FilePerm, info.Mode().Perm())

	names := entryNames(t, path)
	require.NotEmpty(t, names)
	assert.Equal(t, manifest.FileName, names[0])

	prefix := paths.ArchiveName(f.root)
	assert.Contains(t, names, prefix+"/server.conf")
	assert.Contains(t, names, prefix+"/ccd/alice")
	assert.Contains(t, names, prefix+"/current.conf")
	assert.NotContains(t, names, prefix+"/server.log")
	for _, n := range names {
		assert.NotEqual(t, '/', n[0], "entry %q has a leading separator", n)
	}
}

func TestPack_MissingRootOmitted(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(t.TempDir(), "iptables")
	f.m.Roots = append(f.m.Roots, missing)

	path := f.pack(t)
	for _, n := range entryNames(t, path) {
		assert.NotContains(t, n, "iptables")
	}

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Contains(t, got.Roots, missing)
}

func TestPack_SameSecondGetsDistinctNames(t *testing.T) {
	f := newFixture(t)
	first := f.pack(t)
	second := f.pack(t)
	assert.NotEqual(t, first, second)
	assert.True(t, IsArchiveName(filepath.Base(second)))
}

func TestPack_LeavesNoTempFiles(t *testing.T) {
	f := newFixture(t)
	f.pack(t)

	entries, err := os.ReadDir(f.out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, IsArchiveName(entries[0].Name()))
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t)
	path := f.pack(t)

	tmp := t.TempDir()
	ws, err := Open(path, tmp)
	require.NoError(t, err)

	assert.True(t, f.m.Equal(ws.Manifest), "unpacked manifest differs from the packed one")

	data, err := os.ReadFile(filepath.Join(ws.RootDir(f.root), "ccd", "alice"))
	require.NoError(t, err)
	assert.Equal(t, "ifconfig-push 10.8.0.2\n", string(data))

	info, err := os.Stat(filepath.Join(ws.RootDir(f.root), "ccd", "alice"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	target, err := os.Readlink(filepath.Join(ws.RootDir(f.root), "current.conf"))
	require.NoError(t, err)
	assert.Equal(t, "server.conf", target)

	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Dir)
	require.NoError(t, ws.Close())

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadManifest(t *testing.T) {
	f := newFixture(t)
	got, err := ReadManifest(f.pack(t))
	require.NoError(t, err)
	assert.True(t, f.m.Equal(got))
}

// writeRaw builds an archive from literal headers.
func writeRaw(t *testing.T, entries []tar.Header, bodies map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), Name(captured, 0))
	out, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	for _, hdr := range entries {
		body := bodies[hdr.Name]
		hdr.Size = int64(len(body))
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		require.NoError(t, tw.WriteHeader(&hdr))
		if body != "" {
			_, err := tw.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())
	return path
}

func TestOpen_MissingManifest(t *testing.T) {
	path := writeRaw(t, []tar.Header{
		{Name: "etc/openvpn/server.conf", Typeflag: tar.TypeReg},
	}, map[string]string{"etc/openvpn/server.conf": "port 1194\n"})

	tmp := t.TempDir()
	ws, err := Open(path, tmp)
	assert.Nil(t, ws)
	assert.True(t, errors.Is(err, ErrMissingManifest), "got %v", err)

	_, err = ReadManifest(path)
	assert.True(t, errors.Is(err, ErrMissingManifest))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory must be removed on failure")
}

func TestOpen_CorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), Name(captured, 0))
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))

	tmp := t.TempDir()
	_, err := Open(path, tmp)
	assert.Error(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnpack_RejectsEscapes(t *testing.T) {
	tests := []struct {
		name    string
		entries []tar.Header
	}{
		{"parent traversal", []tar.Header{{Name: "../evil", Typeflag: tar.TypeReg}}},
		{"nested traversal", []tar.Header{{Name: "etc/../../evil", Typeflag: tar.TypeReg}}},
		{"absolute", []tar.Header{{Name: "/etc/evil", Typeflag: tar.TypeReg}}},
		{"through symlink", []tar.Header{
			{Name: "escape", Typeflag: tar.TypeSymlink, Linkname: "/tmp"},
			{Name: "escape/evil", Typeflag: tar.TypeReg},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRaw(t, tt.entries, nil)
			err := Unpack(path, t.TempDir())
			assert.True(t, errors.Is(err, ErrUnsafePath), "got %v", err)
		})
	}
}

func touchArchive(t *testing.T, dir string, at time.Time, size int) string {
	t.Helper()
	p := filepath.Join(dir, Name(at, 0))
	write(t, p, string(make([]byte, size)), 0o600)
	return p
}

func TestCatalog_List(t *testing.T) {
	out, extra := t.TempDir(), t.TempDir()
	touchArchive(t, out, captured, 10)
	touchArchive(t, out, captured.Add(time.Hour), 20)
	touchArchive(t, extra, captured.Add(-time.Hour), 30)
	touchArchive(t, extra, captured, 99)
	write(t, filepath.Join(out, "notes.txt"), "x", 0o600)

	c := NewCatalog(out, extra, "", out, filepath.Join(t.TempDir(), "absent"))
	got, err := c.List()
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, Name(captured.Add(time.Hour), 0), got[0].Name)
	assert.Equal(t, Name(captured, 0), got[1].Name)
	assert.Equal(t, int64(10), got[1].Size, "earlier directory wins on duplicate names")
	assert.Equal(t, Name(captured.Add(-time.Hour), 0), got[2].Name)
	assert.Equal(t, filepath.Join(extra, got[2].Name), got[2].Path)
}

func TestCatalog_Locate(t *testing.T) {
	out, extra := t.TempDir(), t.TempDir()
	inExtra := touchArchive(t, extra, captured, 1)
	c := NewCatalog(out, extra)

	got, err := c.Locate(filepath.Base(inExtra))
	require.NoError(t, err)
	assert.Equal(t, inExtra, got)

	got, err = c.Locate(inExtra)
	require.NoError(t, err)
	assert.Equal(t, inExtra, got)

	for _, bad := range []string{"missing.tar.gz", "../" + filepath.Base(inExtra), "", filepath.Join(out, "absent")} {
		_, err := c.Locate(bad)
		assert.True(t, errors.Is(err, ErrNotFound), bad)
	}
}

func TestCatalog_Delete(t *testing.T) {
	out := t.TempDir()
	p := touchArchive(t, out, captured, 1)
	write(t, filepath.Join(out, "server.conf"), "x", 0o600)
	c := NewCatalog(out)

	_, err := c.Delete("server.conf")
	assert.True(t, errors.Is(err, ErrInvalidName))
	assert.FileExists(t, filepath.Join(out, "server.conf"))

	got, err := c.Delete(filepath.Base(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.NoFileExists(t, p)

	_, err = c.Delete(filepath.Base(p))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_Prune(t *testing.T) {
	out := t.TempDir()
	for i := range 4 {
		touchArchive(t, out, captured.Add(time.Duration(i)*time.Hour), 1)
	}
	c := NewCatalog(out)

	removed, err := c.Prune(2)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, Name(captured.Add(time.Hour), 0), removed[0].Name)
	assert.Equal(t, Name(captured, 0), removed[1].Name)

	left, err := c.List()
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, Name(captured.Add(3*time.Hour), 0), left[0].Name)

	removed, err = c.Prune(5)
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = c.Prune(-1)
	assert.Error(t, err)
}
