package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/ovsnap/internal/errors"
)

func TestAtomicWriteFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{name: "text", data: []byte("hello world\n"), perm: 0o644},
		{name: "empty", data: []byte{}, perm: 0o644},
		{name: "binary private", data: []byte{0x00, 0x01, 0x02, 0xFF}, perm: 0o600},
		{name: "executable", data: []byte("#!/bin/sh\necho hello\n"), perm: 0o755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out")

			require.NoError(t, AtomicWriteFile(path, tt.data, tt.perm))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, string(tt.data), string(got))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.perm, info.Mode().Perm())
		})
	}
}

func TestAtomicWriteFile_DirectoryNotExists(t *testing.T) {
	dir := t.TempDir()
	err := AtomicWriteFile(filepath.Join(dir, "missing", "file.txt"), []byte("data"), 0o600)
	assert.Error(t, err)
}

func TestAtomicWriteFunc_FailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	boom := errors.New("boom")
	err := AtomicWriteFunc(path, 0o600, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, IsTemp(e.Name()), "temp file left behind: %s", e.Name())
	}
}

func TestAtomicCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "crl.pem")
	dst := filepath.Join(dir, "out", "crl.pem")
	require.NoError(t, os.WriteFile(src, []byte("-----BEGIN X509 CRL-----\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, AtomicCopyFile(src, dst, 0o644))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN X509 CRL-----\n", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestAtomicCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := AtomicCopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst"), 0o644)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "dst"))
}

func TestAtomicWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, AtomicWriteYAML(path, map[string][]string{"roots": {"/etc/openvpn"}}, 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "roots:\n    - /etc/openvpn\n", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIsTemp(t *testing.T) {
	assert.True(t, IsTemp(".ovsnap-atomic-123456.tmp"))
	assert.False(t, IsTemp("openvpn_full_backup_20250131_123045.tar.gz"))
	assert.False(t, IsTemp(".ovsnap-atomic-123456"))
}
