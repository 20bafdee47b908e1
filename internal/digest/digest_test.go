package digest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.conf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
}

func TestFile_LargerThanChunk(t *testing.T) {
	data := bytes.Repeat([]byte("a"), ChunkSize*3+17)
	path := filepath.Join(t.TempDir(), "big")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := File(path)
	require.NoError(t, err)

	want, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFile_Missing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	got, err := Reader(strings.NewReader("target"))
	require.NoError(t, err)
	assert.Equal(t, got, String("target"))
}
