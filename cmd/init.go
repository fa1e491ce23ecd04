package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/comaziwa/keyprops/internal/prompt"
	"github.com/comaziwa/keyprops/internal/signing"
)

var (
	initKeyAlias  string
	initStoreFile string
	initForce     bool
)

// Passwords are read from the environment rather than flags to keep them
// out of shell history
const (
	envInitKeyPassword   = "KEYPROPS_KEY_PASSWORD"
	envInitStorePassword = "KEYPROPS_STORE_PASSWORD"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a key.properties file",
	Long: `Create the signing properties file. Interactive by default when run in a terminal.

Non-interactive:
  --key-alias NAME           Key alias inside the keystore
  --store-file PATH          Keystore path (relative paths resolve against android/app)
  KEYPROPS_KEY_PASSWORD      Key password (environment)
  KEYPROPS_STORE_PASSWORD    Keystore password (environment)

The file is written with owner-only permissions. Make sure it is listed in
.gitignore; 'keyprops status' reports when it is not.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	t, err := locate()
	if err != nil {
		return err
	}

	if _, err := os.Stat(t.Path); err == nil && !initForce {
		return fmt.Errorf("%s already exists; use --force to overwrite", t.Path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &signing.ConfigReadError{Path: t.Path, Op: signing.OpStat, Err: err}
	}

	creds := &signing.SigningCredentials{
		KeyAlias:      initKeyAlias,
		KeyPassword:   os.Getenv(envInitKeyPassword),
		StoreFilePath: initStoreFile,
		StorePassword: os.Getenv(envInitStorePassword),
	}

	if isInteractive() && !creds.Complete() {
		creds, err = prompt.Run(os.Stdin, cmd.OutOrStdout(), creds)
		if err != nil {
			return err
		}
	} else if err := creds.Validate(); err != nil {
		var incomplete *signing.IncompleteError
		if errors.As(err, &incomplete) {
			return fmt.Errorf("%w (set --key-alias, --store-file, %s and %s)", err, envInitKeyPassword, envInitStorePassword)
		}
		return err
	}
	defer creds.Clear()

	if err := signing.Save(t.Path, creds); err != nil {
		return fmt.Errorf("failed to save signing properties: %w", err)
	}
	logger.Info("wrote signing properties", zap.String("path", t.Path))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signing properties saved to %s\n", t.Path)

	if ignored, err := t.Project.IsIgnored(t.Path); err == nil && t.Project.InRepository() && !ignored {
		s := newStyles(out)
		fmt.Fprintln(out, s.warn.Render("Warning: this file is not excluded by .gitignore. Add it before committing."))
	}
	return nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	initCmd.Flags().StringVar(&initKeyAlias, "key-alias", "", "Key alias inside the keystore")
	initCmd.Flags().StringVar(&initStoreFile, "store-file", "", "Path to the keystore file")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	rootCmd.AddCommand(initCmd)
}
