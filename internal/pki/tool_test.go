package pki

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEasyRSA installs a shell script that records its arguments and the
// CRL validity it was given.
func fakeEasyRSA(t *testing.T, exitCode int) (Layout, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	layout := Layout{EasyRSADir: t.TempDir()}
	logPath := filepath.Join(t.TempDir(), "calls.log")
	script := "#!/bin/sh\n" +
		"echo \"$* days=${EASYRSA_CRL_DAYS:-} cwd=$(pwd)\" >> " + logPath + "\n" +
		"echo 'easyrsa: failure detail' >&2\n" +
		"exit " + map[bool]string{true: "0", false: "3"}[exitCode == 0] + "\n"
	require.NoError(t, os.WriteFile(layout.ToolPath(), []byte(script), 0o755))
	return layout, logPath
}

func TestEasyRSA_GenerateCRL(t *testing.T) {
	layout, logPath := fakeEasyRSA(t, 0)

	require.NoError(t, NewEasyRSA(layout).GenerateCRL(context.Background(), 3650))

	calls, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(calls), "gen-crl days=3650")
	assert.Contains(t, string(calls), "cwd="+layout.EasyRSADir)
}

func TestEasyRSA_Revoke(t *testing.T) {
	layout, logPath := fakeEasyRSA(t, 0)

	require.NoError(t, NewEasyRSA(layout).Revoke(context.Background(), "alice"))

	calls, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(calls), "--batch revoke alice"))
}

func TestEasyRSA_FailureIncludesOutput(t *testing.T) {
	layout, _ := fakeEasyRSA(t, 1)

	err := NewEasyRSA(layout).GenerateCRL(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "easyrsa: failure detail")
}

func TestEasyRSA_RejectsBadInput(t *testing.T) {
	e := NewEasyRSA(Layout{EasyRSADir: t.TempDir()})
	assert.ErrorIs(t, e.Revoke(context.Background(), "--help"), ErrInvalidName)
	assert.Error(t, e.GenerateCRL(context.Background(), 0))
}
