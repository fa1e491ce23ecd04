package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/comaziwa/keyprops/internal/config"
	"github.com/comaziwa/keyprops/internal/logging"
	"github.com/comaziwa/keyprops/internal/project"
	"github.com/comaziwa/keyprops/internal/signing"
)

var (
	// Global configuration state
	cfg    *config.Config
	logger = zap.NewNop()

	// Command line flags
	cfgFile string
	version = "1.0.0" // This will be set during build
)

// flagKeys maps persistent flags onto config keys
var flagKeys = map[string]string{
	"project_dir": "project-dir",
	"file":        "file",
	"strict":      "strict",
	"policy":      "policy",
	"log.level":   "log-level",
	"log.format":  "log-format",
	"log.file":    "log-file",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "keyprops",
	Short: "keyprops - Resolve Android release-signing credentials",
	Long: `keyprops locates a project's key.properties file and resolves the release-signing
credentials it holds (key alias, key password, keystore path and keystore password)
for the build tool that signs the release artifact.

A missing key.properties is not an error: the build simply proceeds unsigned.`,
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

func initRuntime(cmd *cobra.Command, args []string) error {
	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	for key, name := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}

	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger = l.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("command", cmd.Name()),
	)
	return nil
}

// target is the signing properties file a command operates on
type target struct {
	Path    string
	BaseDir string
	Project *project.Project
}

// locate picks the properties file from --file or by project discovery
func locate() (*target, error) {
	p, err := project.Discover(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}

	path := cfg.File
	if path == "" {
		path = p.PropertiesPath()
	} else if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	t := &target{Path: path, BaseDir: project.StoreBaseDir(path), Project: p}
	logger.Debug("located signing properties",
		zap.String("path", t.Path),
		zap.String("root", p.Root),
		zap.Bool("repository", p.InRepository()),
	)
	return t, nil
}

// resolveTarget resolves credentials, logging only key names and paths
func resolveTarget(t *target) (*signing.SigningCredentials, error) {
	creds, err := signing.ResolveWithOptions(t.Path, signing.ResolveOptions{Strict: cfg.Strict})
	if err != nil {
		logger.Error("signing properties unusable", zap.String("path", t.Path), zap.Error(err))
		return nil, err
	}
	if creds == nil {
		logger.Info("no signing properties; build will be unsigned", zap.String("path", t.Path))
		return nil, nil
	}
	logger.Debug("resolved signing properties",
		zap.String("path", t.Path),
		zap.Strings("missing", creds.Missing()),
	)
	return creds, nil
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default .keyprops.yaml in the working or home directory)")
	flags.String("project-dir", ".", "Directory where project discovery starts")
	flags.StringP("file", "f", "", "Path to the signing properties file (skips discovery)")
	flags.Bool("strict", false, "Treat a key.properties without all four keys as an error")
	flags.String("policy", "", "Rego module replacing the built-in lint rules")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console, json")
	flags.String("log-file", "", "Also write JSON logs to this file")

	// Add version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of keyprops",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyprops v%s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
