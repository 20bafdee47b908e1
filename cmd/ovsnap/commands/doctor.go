package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/doctor"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

var (
	doctorAll bool
	doctorFix bool
)

func init() {
	doctorCmd.Flags().BoolVarP(&doctorAll, "all", "a", false,
		"show passed and informational checks too")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"fix permission problems and create missing directories")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and host issues",
	Long: `Run diagnostic checks on the ovsnap configuration and the host: roots
exist, the output directory is writable and private, archives are not
readable by other users, the Easy-RSA installation can regenerate a CRL and
the service manager is available.

Exit codes:
  0 - no errors or warnings
  1 - warnings present, no errors
  2 - errors present`,
	Example: `  ovsnap doctor
  ovsnap doctor --all
  ovsnap doctor --fix

  See Also: ovsnap config show`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

// errDoctorWarnings is a sentinel error for exit code 1.
var errDoctorWarnings = errors.New("warnings found")

// errDoctorErrors is a sentinel error for exit code 2.
var errDoctorErrors = errors.New("errors found")

type doctorOutput struct {
	*doctor.Report
	Fixes []doctor.FixResult `json:"fixes,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}

	runner := doctor.NewRunner(doctor.Checks(app.RawConfig(), app.ConfigUsed())...)
	report := runner.Run()

	out := doctorOutput{Report: report}
	if doctorFix {
		out.Fixes = runner.Fix()
		if len(out.Fixes) > 0 {
			report = runner.Run()
			out.Report = report
		}
	}

	if err := p.Print(out, func(w io.Writer) error {
		writeDoctor(w, out)
		return nil
	}); err != nil {
		return err
	}

	if report.HasErrors() {
		return errors.NewExitError(errDoctorErrors, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(errDoctorWarnings, errors.ExitUser)
	}
	return nil
}

func writeDoctor(w io.Writer, out doctorOutput) {
	for _, f := range out.Fixes {
		icon := "✓"
		if !f.Fixed {
			icon = "✗"
		}
		fmt.Fprintf(w, "%s fix %s: %s\n", icon, f.Path, f.Description)
	}

	shown := 0
	for _, res := range out.Results {
		if !doctorAll && res.Status != doctor.SeverityError && res.Status != doctor.SeverityWarning {
			continue
		}
		shown++
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(res.Status), res.Category, res.Name, res.Message)
		for _, prob := range res.Problems {
			fmt.Fprintf(w, "    %s\n", prob)
		}
		if res.FixHint != "" && res.Status >= doctor.SeverityWarning {
			fmt.Fprintf(w, "  hint: %s\n", res.FixHint)
		}
	}
	if shown > 0 {
		fmt.Fprintln(w)
	}

	s := out.Summary
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n", s.Passed, s.Info, s.Warnings, s.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return "✓"
	case doctor.SeverityInfo:
		return "ℹ"
	case doctor.SeverityWarning:
		return "⚠"
	case doctor.SeverityError:
		return "✗"
	default:
		return "?"
	}
}
