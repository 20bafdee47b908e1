package doctor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCheck struct{ mock.Mock }

func (m *mockCheck) Name() string     { return m.Called().String(0) }
func (m *mockCheck) Category() string { return "test" }
func (m *mockCheck) Run() *CheckResult {
	return m.Called().Get(0).(*CheckResult)
}

type fixableCheck struct {
	mockCheck
	PermissionFixer
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Severity
		want     Summary
		errors   bool
		warnings bool
	}{
		{name: "empty runner"},
		{name: "all pass", statuses: []Severity{SeverityPass, SeverityPass}, want: Summary{Passed: 2}},
		{
			name:     "mixed",
			statuses: []Severity{SeverityPass, SeverityInfo, SeverityWarning, SeverityError, SeverityWarning},
			want:     Summary{Passed: 1, Info: 1, Warnings: 2, Errors: 1},
			errors:   true,
			warnings: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner()
			r.Clock = func() time.Time { return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC) }
			for i, s := range tt.statuses {
				c := &mockCheck{}
				c.On("Run").Return(&CheckResult{Name: string(rune('a' + i)), Status: s}).Once()
				r.AddCheck(c)
			}

			rep := r.Run()
			require.Len(t, rep.Results, len(tt.statuses))
			assert.Equal(t, tt.want, rep.Summary)
			assert.Equal(t, tt.errors, rep.HasErrors())
			assert.Equal(t, tt.warnings, rep.HasWarnings())
			assert.Equal(t, 2025, rep.Timestamp.Year())
			for i, res := range rep.Results {
				assert.Equal(t, string(rune('a'+i)), res.Name, "order preserved")
			}
		})
	}
}

func TestRunner_Fix(t *testing.T) {
	dir := t.TempDir()
	target := dir + "/new"

	fc := &fixableCheck{}
	fc.setIssues([]issue{{Path: target, Fix: fixMkdir, Perm: privateDirPerm}})
	plain := &mockCheck{}

	r := NewRunner(fc, plain)
	results := r.Fix()

	require.Len(t, results, 1)
	assert.True(t, results[0].Fixed)
	assert.DirExists(t, target)
}

func TestSeverity_Text(t *testing.T) {
	data, err := json.Marshal(&CheckResult{Name: "x", Status: SeverityWarning})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"warning"`)

	var got CheckResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, SeverityWarning, got.Status)

	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
	assert.Equal(t, "unknown", Severity(42).String())
}
