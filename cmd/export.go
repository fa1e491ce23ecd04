package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comaziwa/keyprops/internal/export"
	"github.com/comaziwa/keyprops/internal/github"
)

var (
	exportFormat        string
	exportAbsoluteStore bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Hand resolved signing credentials to a build tool",
	Long: `Print the resolved signing credentials, unredacted, in a form a build tool can
consume. When no key.properties exists nothing is printed and the command
succeeds, so an unsigned build can proceed.

Formats:
  env         KEYPROPS_KEY_ALIAS=... lines for 'eval' or a .env file (default)
  json, yaml  the four values under their property names
  gradle      -Pandroid.injected.signing.* arguments, one per line
  properties  a normalized key.properties
  github      mask the passwords and append the variables to $GITHUB_ENV

Examples:
  eval "$(keyprops export)"
  mapfile -t args < <(keyprops export --format gradle) && ./gradlew assembleRelease "${args[@]}"
  keyprops export --format github`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ValidateFormat(exportFormat)
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
	if creds == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "No signing properties at %s; nothing to export\n", t.Path)
		return nil
	}
	defer creds.Clear()

	// Gradle resolves injected paths against its working directory
	if exportAbsoluteStore || format == export.FormatGradle {
		creds.StoreFilePath = creds.StoreFile(t.BaseDir)
	}

	logger.Info("exporting signing credentials",
		zap.String("format", string(format)),
		zap.Strings("missing", creds.Missing()),
	)

	if format == export.FormatGitHub {
		ctx := github.DetectContext()
		if !ctx.Actions {
			logger.Warn("not running in GitHub Actions")
		}
		if err := github.ExportEnv(cmd.OutOrStdout(), ctx.EnvFile, export.EnvVars(creds)); err != nil {
			return fmt.Errorf("github export failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported signing credentials to GITHUB_ENV\n")
		return nil
	}

	return export.Write(cmd.OutOrStdout(), creds, format)
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "env", "Export format: env, json, yaml, gradle, properties, github")
	exportCmd.Flags().BoolVar(&exportAbsoluteStore, "absolute-store", false, "Resolve a relative storeFile against the app module directory")

	rootCmd.AddCommand(exportCmd)
}
