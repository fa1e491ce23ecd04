package signing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
)

// stat and readFile can be overridden for testing purposes
var (
	stat     = os.Stat
	readFile = os.ReadFile
)

// ResolveOptions controls how a signing properties file is interpreted
type ResolveOptions struct {
	// Strict rejects files that do not define all four keys
	Strict bool
}

// Resolve loads signing credentials from the properties file at configPath.
//
// A missing file is not an error: Resolve returns nil, nil and the build
// proceeds unsigned. A file that exists but cannot be read or parsed yields a
// *ConfigReadError. Keys absent from the file are returned as empty values.
func Resolve(configPath string) (*SigningCredentials, error) {
	return ResolveWithOptions(configPath, ResolveOptions{})
}

// ResolveWithOptions is Resolve with explicit options
func ResolveWithOptions(configPath string, opts ResolveOptions) (*SigningCredentials, error) {
	info, err := stat(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ConfigReadError{Path: configPath, Op: OpStat, Err: err}
	}
	if info.IsDir() {
		return nil, &ConfigReadError{Path: configPath, Op: OpRead, Err: errors.New("is a directory")}
	}

	data, err := readFile(configPath)
	if err != nil {
		return nil, &ConfigReadError{Path: configPath, Op: OpRead, Err: err}
	}

	creds, err := Parse(data)
	if err != nil {
		return nil, &ConfigReadError{Path: configPath, Op: OpParse, Err: err}
	}

	if opts.Strict {
		if err := creds.Validate(); err != nil {
			return nil, &ConfigReadError{Path: configPath, Op: OpValidate, Err: err}
		}
	}

	return creds, nil
}

// Parse decodes properties file content into SigningCredentials. Values are
// taken verbatim; ${...} references are not expanded.
func Parse(data []byte) (*SigningCredentials, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}

	return &SigningCredentials{
		KeyAlias:      p.GetString(PropKeyAlias, ""),
		KeyPassword:   p.GetString(PropKeyPassword, ""),
		StoreFilePath: p.GetString(PropStoreFile, ""),
		StorePassword: p.GetString(PropStorePassword, ""),
	}, nil
}

// Encode writes creds as a properties file with the keys in fixed order
func Encode(w io.Writer, creds *SigningCredentials) error {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, key := range PropertyKeys {
		if _, _, err := p.Set(key, creds.Get(key)); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	if _, err := p.Write(w, properties.UTF8); err != nil {
		return fmt.Errorf("failed to encode signing properties: %w", err)
	}
	return nil
}

// Save persists creds to path, readable only by the current user
func Save(path string, creds *SigningCredentials) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, creds); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write signing properties to %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict permissions on %s: %w", path, err)
	}

	return nil
}
