package pki

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"
)

// mockTool is a testify mock for CATool. When crl is set, GenerateCRL
// writes it to the layout's crl.pem like the real tool does.
type mockTool struct {
	mock.Mock
	layout Layout
	crl    string
}

func (m *mockTool) Revoke(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockTool) GenerateCRL(ctx context.Context, days int) error {
	err := m.Called(ctx, days).Error(0)
	if err == nil && m.crl != "" {
		if werr := os.WriteFile(m.layout.CRLPath(), []byte(m.crl), 0o600); werr != nil {
			return werr
		}
	}
	return err
}
