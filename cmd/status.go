package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comaziwa/keyprops/internal/config"
	"github.com/comaziwa/keyprops/internal/policy"
)

var (
	statusOutput string
	statusFail   bool
)

// statusReport is the structured form of the status command's output
type statusReport struct {
	Version      string           `json:"version" yaml:"version"`
	ProjectRoot  string           `json:"project_root" yaml:"project_root"`
	InRepository bool             `json:"in_repository" yaml:"in_repository"`
	Path         string           `json:"path" yaml:"path"`
	Found        bool             `json:"found" yaml:"found"`
	Ignored      bool             `json:"ignored" yaml:"ignored"`
	StoreFile    string           `json:"store_file,omitempty" yaml:"store_file,omitempty"`
	Findings     []policy.Finding `json:"findings" yaml:"findings"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report where signing credentials come from and lint them",
	Long: `Report the discovered project, the signing properties file, whether it is
excluded from git, and the findings of the lint policy.

Examples:
  keyprops status
  keyprops status --fail          # exit non-zero on error findings (CI)
  keyprops status --policy ci.rego -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

// runStatus performs a healthcheck of the signing setup
func runStatus(cmd *cobra.Command) error {
	format, err := config.ValidateOutput(statusOutput)
	if err != nil {
		return err
	}

	t, err := locate()
	if err != nil {
		return err
	}

	report := statusReport{
		Version:      version,
		ProjectRoot:  t.Project.Root,
		InRepository: t.Project.InRepository(),
		Path:         t.Path,
		Findings:     []policy.Finding{},
	}

	ignored, err := t.Project.IsIgnored(t.Path)
	if err != nil {
		logger.Warn("could not evaluate .gitignore", zap.Error(err))
	}
	report.Ignored = ignored

	creds, err := resolveTarget(t)
	if err != nil {
		return err
	}

	if creds != nil {
		report.Found = true
		report.StoreFile = creds.StoreFile(t.BaseDir)

		engine, err := newPolicyEngine(cmd.Context())
		if err != nil {
			return err
		}
		input := policy.NewInput(creds, t.BaseDir)
		input.InRepository = report.InRepository
		input.Ignored = report.Ignored
		creds.Clear()

		findings, err := engine.Evaluate(cmd.Context(), input)
		if err != nil {
			return err
		}
		report.Findings = findings
		logger.Debug("lint finished", zap.Int("findings", len(findings)))
	}

	out := cmd.OutOrStdout()
	if format != config.OutputText {
		if err := printOutput(out, report, format); err != nil {
			return err
		}
	} else {
		printStatus(out, report)
	}

	if statusFail && policy.HasErrors(report.Findings) {
		return errors.New("signing setup has errors")
	}
	return nil
}

func printStatus(out io.Writer, r statusReport) {
	s := newStyles(out)

	fmt.Fprintln(out, s.title.Render(fmt.Sprintf("keyprops v%s", r.Version)))
	fmt.Fprintln(out)

	repo := s.faint.Render("(not a git repository)")
	if r.InRepository {
		repo = s.faint.Render("(git repository)")
	}
	s.row(out, "Project", r.ProjectRoot+" "+repo)

	if !r.Found {
		s.row(out, "Properties", r.Path+" "+s.warn.Render("not found"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No signing properties configured. The build will be unsigned.")
		fmt.Fprintln(out, "Run 'keyprops init' to create them.")
		return
	}
	s.row(out, "Properties", r.Path+" "+s.ok.Render("found"))

	if r.InRepository {
		if r.Ignored {
			s.row(out, "Git", s.ok.Render("ignored"))
		} else {
			s.row(out, "Git", s.fail.Render("NOT ignored"))
		}
	}
	s.row(out, "Keystore", r.StoreFile)

	fmt.Fprintln(out)
	if len(r.Findings) == 0 {
		fmt.Fprintln(out, s.ok.Render("No findings."))
		return
	}
	fmt.Fprintln(out, "Findings:")
	for _, f := range r.Findings {
		sev := s.warn.Render("WARN ")
		if f.Severity == policy.SeverityError {
			sev = s.fail.Render("ERROR")
		}
		fmt.Fprintf(out, "  %s  %-24s %s\n", sev, f.Code, f.Message)
	}
}

// newPolicyEngine loads --policy when set, the built-in rules otherwise
func newPolicyEngine(ctx context.Context) (*policy.Engine, error) {
	if cfg.Policy != "" {
		return policy.NewEngineFromFile(ctx, cfg.Policy)
	}
	return policy.NewEngine(ctx)
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, statusCmd} {
		c.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text, json, yaml")
		c.Flags().BoolVar(&statusFail, "fail", false, "Exit non-zero when the lint policy reports errors")
	}

	rootCmd.AddCommand(statusCmd)
}
