package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadProperties = `keyAlias=upload
keyPassword=secret123
storeFile=upload.jks
storePassword=secret456
`

// executeCommand executes a cobra command and captures its output.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (output string, err error) {
	t.Helper()

	// Flag values survive between executions of the shared command tree
	resetFlags(cmd)

	// Capture stdout and stderr
	oldStdout := os.Stdout
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	defer func() {
		// Restore stdout and stderr
		w.Close()
		os.Stdout = oldStdout
		os.Stderr = oldStderr
		output = <-outC
	}()

	cmd.SetArgs(args)
	err = cmd.Execute()

	return output, err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// newProject lays out a Flutter-style project and returns its root. When
// properties is non-empty it is written to android/key.properties.
func newProject(t *testing.T, properties string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "android", "app"), 0755))
	if properties != "" {
		path := filepath.Join(root, "android", "key.properties")
		require.NoError(t, os.WriteFile(path, []byte(properties), 0600))
	}
	return root
}

func TestRootCommand(t *testing.T) {
	root := newProject(t, "")

	tests := []struct {
		name                 string
		args                 []string
		expectError          bool
		expectOutputContains string
		expectErrorContains  string
	}{
		// Status is the default action
		{
			name:                 "Default status without properties",
			args:                 []string{"--project-dir", root},
			expectOutputContains: "The build will be unsigned.",
		},
		// Version Command Test
		{
			name:                 "Version command",
			args:                 []string{"version"},
			expectOutputContains: "keyprops v",
		},
		{
			name:                "Invalid output format",
			args:                []string{"resolve", "--project-dir", root, "-o", "xml"},
			expectError:         true,
			expectErrorContains: "unsupported output format",
		},
		{
			name:                "Invalid log level",
			args:                []string{"resolve", "--project-dir", root, "--log-level", "loud"},
			expectError:         true,
			expectErrorContains: "unsupported log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(t, rootCmd, tt.args...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErrorContains)
			} else {
				assert.NoError(t, err)
				assert.Contains(t, output, tt.expectOutputContains)
			}
		})
	}
}

func TestResolveCommand(t *testing.T) {
	t.Run("Absent file", func(t *testing.T) {
		root := newProject(t, "")

		output, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root)
		require.NoError(t, err)
		assert.Contains(t, output, filepath.Join(root, "android", "key.properties"))
		assert.Contains(t, output, "The build will be unsigned.")
	})

	t.Run("Redacted summary", func(t *testing.T) {
		root := newProject(t, uploadProperties)

		output, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root)
		require.NoError(t, err)
		assert.Contains(t, output, "upload")
		assert.Contains(t, output, "********")
		assert.Contains(t, output, filepath.Join(root, "android", "app", "upload.jks"))
		assert.NotContains(t, output, "secret123")
		assert.NotContains(t, output, "secret456")
	})

	t.Run("JSON output", func(t *testing.T) {
		root := newProject(t, uploadProperties)

		output, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root, "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, output, `"found": true`)
		assert.Contains(t, output, `"complete": true`)
		assert.Contains(t, output, `"keyAlias": "upload"`)
		assert.NotContains(t, output, "secret123")
	})

	t.Run("Explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "release.properties")
		require.NoError(t, os.WriteFile(path, []byte(uploadProperties), 0600))

		output, err := executeCommand(t, rootCmd, "resolve", "--file", path, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, output, "path: "+path)
		assert.Contains(t, output, "keyAlias: upload")
	})

	t.Run("Strict rejects partial file", func(t *testing.T) {
		root := newProject(t, "keyAlias=upload\n")

		_, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root, "--strict")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing keyPassword, storeFile, storePassword")
	})

	t.Run("Strict from environment", func(t *testing.T) {
		root := newProject(t, "keyAlias=upload\n")
		t.Setenv("KEYPROPS_STRICT", "true")

		_, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root)
		assert.ErrorContains(t, err, "signing credentials are incomplete")
	})

	t.Run("Lenient reports partial file", func(t *testing.T) {
		root := newProject(t, "keyAlias=upload\n")

		output, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root)
		require.NoError(t, err)
		assert.Contains(t, output, "(not set)")
		assert.Contains(t, output, "Incomplete")
	})

	t.Run("Malformed file", func(t *testing.T) {
		root := newProject(t, "keyPassword=\\uZZZZ\n")

		_, err := executeCommand(t, rootCmd, "resolve", "--project-dir", root)
		assert.ErrorContains(t, err, "failed to parse signing properties")
	})
}

func TestStatusCommand(t *testing.T) {
	t.Run("Clean setup", func(t *testing.T) {
		root := newProject(t, uploadProperties)
		require.NoError(t, os.WriteFile(filepath.Join(root, "android", "app", "upload.jks"), []byte("ks"), 0600))

		output, err := executeCommand(t, rootCmd, "status", "--project-dir", root, "--fail")
		require.NoError(t, err)
		assert.Contains(t, output, "found")
		assert.Contains(t, output, "No findings.")
		assert.NotContains(t, output, "secret123")
	})

	t.Run("Missing keystore fails", func(t *testing.T) {
		root := newProject(t, uploadProperties)

		output, err := executeCommand(t, rootCmd, "status", "--project-dir", root, "--fail")
		assert.ErrorContains(t, err, "signing setup has errors")
		assert.Contains(t, output, "STORE_FILE_NOT_FOUND")
	})

	t.Run("JSON report", func(t *testing.T) {
		root := newProject(t, "keyAlias=upload\nkeyPassword=abc\nstoreFile=upload.jks\nstorePassword=secret456\n")

		output, err := executeCommand(t, rootCmd, "status", "--project-dir", root, "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, output, `"SHORT_PASSWORD"`)
		assert.Contains(t, output, `"STORE_FILE_NOT_FOUND"`)
		assert.NotContains(t, output, "abc\"")
	})

	t.Run("Custom policy", func(t *testing.T) {
		root := newProject(t, uploadProperties)
		policyPath := filepath.Join(t.TempDir(), "ci.rego")
		module := "package keyprops.lint\n\nfindings contains {\"code\": \"ALWAYS\", \"severity\": \"warning\", \"message\": \"custom\"} if true\n"
		require.NoError(t, os.WriteFile(policyPath, []byte(module), 0600))

		output, err := executeCommand(t, rootCmd, "status", "--project-dir", root, "--policy", policyPath)
		require.NoError(t, err)
		assert.Contains(t, output, "ALWAYS")
		assert.NotContains(t, output, "STORE_FILE_NOT_FOUND")
	})
}

func TestShowCommand(t *testing.T) {
	root := newProject(t, "# release\n"+uploadProperties)

	output, err := executeCommand(t, rootCmd, "show", "--project-dir", root)
	require.NoError(t, err)
	assert.Contains(t, output, "# release")
	assert.Contains(t, output, "keyAlias=upload")
	assert.Contains(t, output, "keyPassword=********")
	assert.NotContains(t, output, "secret123")
	assert.NotContains(t, output, "secret456")
}

func TestShowCommand_CarriageReturns(t *testing.T) {
	root := newProject(t, "keyAlias=upload\rkeyPassword=secret123\rstore\\u0050assword=secret456\r")

	output, err := executeCommand(t, rootCmd, "show", "--project-dir", root)
	require.NoError(t, err)
	assert.Contains(t, output, "keyAlias=upload")
	assert.NotContains(t, output, "secret123")
	assert.NotContains(t, output, "secret456")
}
