package editor

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEditor(t *testing.T) {
	t.Run("editor wins", func(t *testing.T) {
		t.Setenv("EDITOR", "nvim")
		t.Setenv("VISUAL", "code")
		assert.Equal(t, []string{"nvim"}, detectEditor())
	})

	t.Run("visual", func(t *testing.T) {
		t.Setenv("EDITOR", "")
		t.Setenv("VISUAL", "code --wait")
		assert.Equal(t, []string{"code", "--wait"}, detectEditor())
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv("EDITOR", " ")
		t.Setenv("VISUAL", "")
		want := "vi"
		if _, err := exec.LookPath("nano"); err == nil {
			want = "nano"
		}
		assert.Equal(t, []string{want}, detectEditor())
	})
}

func TestRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1 $2\"\necho retention: 3 >> \"$2\"\n"), 0o755))
	target := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(target, nil, 0o600))

	t.Setenv("EDITOR", script+" --wait")
	var out bytes.Buffer
	require.NoError(t, Run(target, nil, &out, &out))

	assert.Equal(t, "--wait "+target+"\n", out.String())
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "retention: 3\n", string(got))
}

func TestRun_Failure(t *testing.T) {
	t.Setenv("EDITOR", filepath.Join(t.TempDir(), "missing-editor"))
	err := Run(filepath.Join(t.TempDir(), "x"), nil, nil, nil)
	assert.Error(t, err)
}
