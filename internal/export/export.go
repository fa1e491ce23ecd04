// Package export renders signing credentials for the build tool that
// consumes them.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"gopkg.in/yaml.v3"

	"github.com/comaziwa/keyprops/internal/signing"
)

// Format selects how credentials are rendered
type Format string

const (
	FormatEnv        Format = "env"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatGradle     Format = "gradle"
	FormatProperties Format = "properties"
	FormatGitHub     Format = "github"
)

// ErrIndirectFormat is returned by Write for formats that are not rendered
// to a writer
var ErrIndirectFormat = errors.New("format cannot be written directly")

// ValidateFormat checks if the given string is a supported Format.
// FormatGitHub is accepted but Write rejects it with ErrIndirectFormat:
// callers hand it to github.ExportEnv, which appends to the Actions
// environment file.
func ValidateFormat(format string) (Format, error) {
	switch f := Format(strings.ToLower(format)); f {
	case "":
		return FormatEnv, nil
	case FormatEnv, FormatJSON, FormatYAML, FormatGradle, FormatProperties, FormatGitHub:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: must be one of env, json, yaml, gradle, properties, github", format)
	}
}

// Var is one exported value
type Var struct {
	Name   string
	Value  string
	Secret bool
}

// Environment variable names used by the env and github formats
const (
	EnvKeyAlias      = "KEYPROPS_KEY_ALIAS"
	EnvKeyPassword   = "KEYPROPS_KEY_PASSWORD"
	EnvStoreFile     = "KEYPROPS_STORE_FILE"
	EnvStorePassword = "KEYPROPS_STORE_PASSWORD"
)

var envNames = map[string]string{
	signing.PropKeyAlias:      EnvKeyAlias,
	signing.PropKeyPassword:   EnvKeyPassword,
	signing.PropStoreFile:     EnvStoreFile,
	signing.PropStorePassword: EnvStorePassword,
}

// Properties the Android Gradle Plugin reads to sign without a signingConfig
var gradleProperties = map[string]string{
	signing.PropKeyAlias:      "android.injected.signing.key.alias",
	signing.PropKeyPassword:   "android.injected.signing.key.password",
	signing.PropStoreFile:     "android.injected.signing.store.file",
	signing.PropStorePassword: "android.injected.signing.store.password",
}

// EnvVars returns the credentials as environment variables in file order
func EnvVars(creds *signing.SigningCredentials) []Var {
	vars := make([]Var, 0, len(signing.PropertyKeys))
	for _, key := range signing.PropertyKeys {
		vars = append(vars, Var{
			Name:   envNames[key],
			Value:  creds.Get(key),
			Secret: signing.IsSecret(key),
		})
	}
	return vars
}

// Write renders creds in the given format. FormatGitHub yields
// ErrIndirectFormat.
func Write(w io.Writer, creds *signing.SigningCredentials, format Format) error {
	switch format {
	case FormatEnv, "":
		for _, v := range EnvVars(creds) {
			if _, err := fmt.Fprintf(w, "%s=%s\n", v.Name, shellescape.Quote(v.Value)); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(creds)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(creds); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return encoder.Close()
	case FormatGradle:
		// one argument per line so callers can read them into an array
		for _, key := range signing.PropertyKeys {
			if strings.ContainsAny(creds.Get(key), "\r\n") {
				return fmt.Errorf("%s contains a line break and cannot be passed as a gradle argument", key)
			}
		}
		for _, key := range signing.PropertyKeys {
			if _, err := fmt.Fprintf(w, "-P%s=%s\n", gradleProperties[key], creds.Get(key)); err != nil {
				return err
			}
		}
		return nil
	case FormatProperties:
		return signing.Encode(w, creds)
	case FormatGitHub:
		return fmt.Errorf("%w: %s", ErrIndirectFormat, format)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
