package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comaziwa/keyprops/internal/config"
	"github.com/comaziwa/keyprops/internal/signing"
)

var resolveOutput string

// resolveResult is the structured form of the resolve command's output.
// Credentials are always redacted.
type resolveResult struct {
	Path        string                      `json:"path" yaml:"path"`
	Found       bool                        `json:"found" yaml:"found"`
	Complete    bool                        `json:"complete" yaml:"complete"`
	Missing     []string                    `json:"missing,omitempty" yaml:"missing,omitempty"`
	StoreFile   string                      `json:"store_file,omitempty" yaml:"store_file,omitempty"`
	Credentials *signing.SigningCredentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve signing credentials and print a redacted summary",
	Long: `Resolve release-signing credentials from key.properties.

If the file does not exist, the build is reported as unsigned and the command
succeeds. If it exists but cannot be read or parsed, the command fails.
Passwords are never printed; use 'keyprops export' to hand them to a build tool.

Examples:
  # Resolve from the discovered project
  keyprops resolve

  # Resolve a specific file and require all four keys
  keyprops resolve --file android/key.properties --strict

  # JSON output
  keyprops resolve -o json`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := config.ValidateOutput(resolveOutput)
	if err != nil {
		return err
	}

	t, err := locate()
	if err != nil {
		return err
	}

	creds, err := resolveTarget(t)
	if err != nil {
		return err
	}

	result := resolveResult{Path: t.Path, Found: creds != nil}
	if creds != nil {
		result.Complete = creds.Complete()
		result.Missing = creds.Missing()
		result.StoreFile = creds.StoreFile(t.BaseDir)
		result.Credentials = creds.Redacted()
		creds.Clear()
	}

	out := cmd.OutOrStdout()
	if format != config.OutputText {
		return printOutput(out, result, format)
	}

	s := newStyles(out)
	if !result.Found {
		fmt.Fprintf(out, "No signing properties at %s\n", result.Path)
		fmt.Fprintln(out, s.warn.Render("The build will be unsigned."))
		return nil
	}

	fmt.Fprintln(out, s.title.Render("Signing properties: "+result.Path))
	r := result.Credentials
	s.row(out, "Key alias", orNone(s, r.KeyAlias))
	s.row(out, "Key password", orNone(s, r.KeyPassword))
	s.row(out, "Keystore", orNone(s, r.StoreFilePath))
	if result.StoreFile != r.StoreFilePath {
		s.row(out, "", s.faint.Render("→ "+result.StoreFile))
	}
	s.row(out, "Keystore password", orNone(s, r.StorePassword))
	if !result.Complete {
		fmt.Fprintln(out, s.warn.Render(fmt.Sprintf("Incomplete: missing %v", result.Missing)))
	}
	return nil
}

func orNone(s styles, v string) string {
	if v == "" {
		return s.fail.Render("(not set)")
	}
	return v
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "text", "Output format: text, json, yaml")

	rootCmd.AddCommand(resolveCmd)
}
