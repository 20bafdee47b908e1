package pki

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/logging"
)

// completeLayout creates index, CA key and tool entry point.
func completeLayout(t *testing.T) Layout {
	t.Helper()
	layout := Layout{EasyRSADir: t.TempDir()}
	writeFile(t, layout.IndexPath(), "V 251231000000Z 01 unknown /CN=alice\n")
	writeFile(t, layout.CAKeyPath(), "key")
	writeFile(t, layout.ToolPath(), "#!/bin/sh\n")
	return layout
}

func TestRegenerateIfPossible_Success(t *testing.T) {
	layout := completeLayout(t)
	dest := filepath.Join(t.TempDir(), "openvpn", "crl.pem")

	tool := &mockTool{layout: layout, crl: "CRL DATA"}
	tool.On("GenerateCRL", mock.Anything, 3650).Return(nil).Once()

	r := &Regenerator{Layout: layout, Tool: tool, Dest: dest, Enabled: true, Logger: logging.ForTest(t)}
	ok, msg := r.RegenerateIfPossible(context.Background())

	assert.True(t, ok, msg)
	tool.AssertExpectations(t)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "CRL DATA", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, CRLPerm, info.Mode().Perm())
	assert.Zero(t, info.Mode().Perm()&0o002, "CRL must not be world-writable")
}

func TestRegenerateIfPossible_CustomDays(t *testing.T) {
	layout := completeLayout(t)
	tool := &mockTool{layout: layout}
	tool.On("GenerateCRL", mock.Anything, 30).Return(nil).Once()

	r := &Regenerator{Layout: layout, Tool: tool, Days: 30, Enabled: true}
	ok, _ := r.RegenerateIfPossible(context.Background())

	assert.True(t, ok)
	tool.AssertExpectations(t)
}

func TestRegenerateIfPossible_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		remove func(Layout) string
	}{
		{"missing index", func(l Layout) string { return l.IndexPath() }},
		{"missing ca key", func(l Layout) string { return l.CAKeyPath() }},
		{"missing tool", func(l Layout) string { return l.ToolPath() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := completeLayout(t)
			require.NoError(t, os.Remove(tt.remove(layout)))

			tool := &mockTool{layout: layout}
			r := &Regenerator{Layout: layout, Tool: tool, Enabled: true}
			ok, msg := r.RegenerateIfPossible(context.Background())

			assert.False(t, ok)
			assert.Contains(t, msg, "PKI incomplete")
			tool.AssertNotCalled(t, "GenerateCRL", mock.Anything, mock.Anything)
		})
	}
}

func TestRegenerateIfPossible_Disabled(t *testing.T) {
	layout := completeLayout(t)
	tool := &mockTool{layout: layout}

	r := &Regenerator{Layout: layout, Tool: tool, Enabled: false}
	ok, msg := r.RegenerateIfPossible(context.Background())

	assert.False(t, ok)
	assert.Contains(t, msg, "disabled")
	tool.AssertNotCalled(t, "GenerateCRL", mock.Anything, mock.Anything)
}

func TestRegenerateIfPossible_ToolFailure(t *testing.T) {
	layout := completeLayout(t)
	tool := &mockTool{layout: layout}
	tool.On("GenerateCRL", mock.Anything, mock.Anything).Return(errors.New("exit status 1")).Once()

	r := &Regenerator{Layout: layout, Tool: tool, Enabled: true}
	ok, msg := r.RegenerateIfPossible(context.Background())

	assert.False(t, ok)
	assert.Equal(t, "CRL regen failed: exit status 1", msg)
}

type panickingTool struct{}

func (panickingTool) Revoke(context.Context, string) error { return nil }
func (panickingTool) GenerateCRL(context.Context, int) error {
	panic("boom")
}

func TestRegenerateIfPossible_RecoversPanic(t *testing.T) {
	layout := completeLayout(t)
	r := &Regenerator{Layout: layout, Tool: panickingTool{}, Enabled: true}

	ok, msg := r.RegenerateIfPossible(context.Background())
	assert.False(t, ok)
	assert.Contains(t, msg, "boom")
}

func TestRevokeAll(t *testing.T) {
	layout := completeLayout(t)
	writeFile(t, layout.IssuedCertPath("alice"), "cert")
	writeFile(t, layout.IssuedCertPath("bob"), "cert")

	tool := &mockTool{layout: layout, crl: "CRL"}
	tool.On("Revoke", mock.Anything, "alice").Return(nil).Once()
	tool.On("Revoke", mock.Anything, "bob").Return(errors.New("already revoked")).Once()
	tool.On("GenerateCRL", mock.Anything, DefaultCRLDays).Return(nil).Once()

	// Auto regeneration off: explicit revocation still publishes a CRL.
	r := &Regenerator{Layout: layout, Tool: tool, Enabled: false}
	res := r.RevokeAll(context.Background(), []string{"alice", "bob", "ghost", "../ca"})

	assert.Equal(t, []string{"alice", "ghost"}, res.Revoked)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "bob", res.Failed[0].Name)
	assert.Equal(t, "../ca", res.Failed[1].Name)
	assert.True(t, res.CRL.OK, res.CRL.Message)
	tool.AssertExpectations(t)
}
