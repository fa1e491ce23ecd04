package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"

	"github.com/comaziwa/keyprops/internal/signing"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the signing properties file with passwords masked",
	Long: `Print key.properties as written, with the keyPassword and storePassword values
masked. Output is syntax-highlighted when writing to a terminal.`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	t, err := locate()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	data, err := os.ReadFile(t.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "No signing properties at %s\n", t.Path)
			return nil
		}
		return &signing.ConfigReadError{Path: t.Path, Op: signing.OpRead, Err: err}
	}

	redacted, err := signing.RedactSource(data)
	if err != nil {
		return &signing.ConfigReadError{Path: t.Path, Op: signing.OpParse, Err: err}
	}
	if isTerminal(out) {
		return quick.Highlight(out, string(redacted), "properties", "terminal256", "monokai")
	}
	_, err = out.Write(redacted)
	return err
}

func init() {
	rootCmd.AddCommand(showCmd)
}
