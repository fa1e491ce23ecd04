package signing

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultFileName is the conventional name of the signing properties file
const DefaultFileName = "key.properties"

// Property keys read from the signing properties file
const (
	PropKeyAlias      = "keyAlias"
	PropKeyPassword   = "keyPassword"
	PropStoreFile     = "storeFile"
	PropStorePassword = "storePassword"
)

// PropertyKeys lists the signing property keys in file order
var PropertyKeys = []string{PropKeyAlias, PropKeyPassword, PropStoreFile, PropStorePassword}

const redactedValue = "********"

// SigningCredentials holds the values needed to sign a release build.
// KeyPassword and StorePassword are secrets and must never be logged.
type SigningCredentials struct {
	KeyAlias      string `json:"keyAlias" yaml:"keyAlias"`
	KeyPassword   string `json:"keyPassword" yaml:"keyPassword"`
	StoreFilePath string `json:"storeFile" yaml:"storeFile"`
	StorePassword string `json:"storePassword" yaml:"storePassword"`
}

// Get returns the value stored under the given property key
func (c *SigningCredentials) Get(key string) string {
	switch key {
	case PropKeyAlias:
		return c.KeyAlias
	case PropKeyPassword:
		return c.KeyPassword
	case PropStoreFile:
		return c.StoreFilePath
	case PropStorePassword:
		return c.StorePassword
	default:
		return ""
	}
}

// IsSecret reports whether the property key holds a password
func IsSecret(key string) bool {
	return key == PropKeyPassword || key == PropStorePassword
}

// Missing returns the property keys whose value is empty
func (c *SigningCredentials) Missing() []string {
	missing := []string{}
	for _, key := range PropertyKeys {
		if c.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Complete reports whether all four values are present
func (c *SigningCredentials) Complete() bool {
	return len(c.Missing()) == 0
}

// StoreFile resolves the keystore path against baseDir. Relative paths in
// key.properties are interpreted the way the Android app module resolves
// them, so baseDir is normally the app module directory.
func (c *SigningCredentials) StoreFile(baseDir string) string {
	if c.StoreFilePath == "" || filepath.IsAbs(c.StoreFilePath) {
		return c.StoreFilePath
	}
	return filepath.Join(baseDir, c.StoreFilePath)
}

// Redacted returns a copy with both passwords masked. Empty passwords stay
// empty so the copy still reports what is missing.
func (c *SigningCredentials) Redacted() *SigningCredentials {
	return &SigningCredentials{
		KeyAlias:      c.KeyAlias,
		KeyPassword:   mask(c.KeyPassword),
		StoreFilePath: c.StoreFilePath,
		StorePassword: mask(c.StorePassword),
	}
}

// Clear drops the secret values
func (c *SigningCredentials) Clear() {
	c.KeyPassword = ""
	c.StorePassword = ""
}

// String never includes the passwords
func (c *SigningCredentials) String() string {
	r := c.Redacted()
	return fmt.Sprintf("keyAlias=%s keyPassword=%s storeFile=%s storePassword=%s",
		r.KeyAlias, r.KeyPassword, r.StoreFilePath, r.StorePassword)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return redactedValue
}

// IncompleteError reports signing property keys that are absent or empty
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("signing credentials are incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// Op identifies the stage at which reading the properties file failed
type Op string

const (
	OpStat     Op = "stat"
	OpRead     Op = "read"
	OpParse    Op = "parse"
	OpValidate Op = "validate"
)

// ConfigReadError is returned when a signing properties file exists but
// cannot be used. It is fatal to the build configuration phase.
type ConfigReadError struct {
	Path string
	Op   Op
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("failed to %s signing properties %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error {
	return e.Err
}
