// Package policy lints resolved signing credentials with Rego rules.
//
// The rules only ever see a redacted view of the credentials: password
// lengths, never password values.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/comaziwa/keyprops/internal/signing"
)

const defaultQuery = "data.keyprops.lint.findings"

//go:embed lint.rego
var builtinModule string

// Severity of a lint finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single lint result
type Finding struct {
	Code     string   `json:"code" yaml:"code"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// Input is the document the rules evaluate
type Input struct {
	KeyAlias            string   `json:"key_alias"`
	StoreFile           string   `json:"store_file"`
	StoreExtension      string   `json:"store_extension"`
	StoreFileExists     bool     `json:"store_file_exists"`
	KeyPasswordLength   int      `json:"key_password_length"`
	StorePasswordLength int      `json:"store_password_length"`
	Missing             []string `json:"missing"`
	InRepository        bool     `json:"in_repository"`
	Ignored             bool     `json:"ignored"`
}

// NewInput builds a redacted Input. storeBaseDir resolves a relative
// keystore path before its existence is checked.
func NewInput(creds *signing.SigningCredentials, storeBaseDir string) Input {
	storeFile := creds.StoreFile(storeBaseDir)
	exists := false
	if storeFile != "" {
		if info, err := os.Stat(storeFile); err == nil && !info.IsDir() {
			exists = true
		}
	}
	return Input{
		KeyAlias:            creds.KeyAlias,
		StoreFile:           storeFile,
		StoreExtension:      filepath.Ext(storeFile),
		StoreFileExists:     exists,
		KeyPasswordLength:   len([]rune(creds.KeyPassword)),
		StorePasswordLength: len([]rune(creds.StorePassword)),
		Missing:             creds.Missing(),
	}
}

// Engine evaluates a prepared lint query
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the built-in rules
func NewEngine(ctx context.Context) (*Engine, error) {
	return newEngine(ctx, "lint.rego", builtinModule)
}

// NewEngineFromFile prepares rules from a Rego file. The module must define
// data.keyprops.lint.findings.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return newEngine(ctx, path, string(src))
}

func newEngine(ctx context.Context, name, src string) (*Engine, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.Module(name, src),
		rego.StrictBuiltinErrors(true),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy %s: %w", name, err)
	}
	return &Engine{query: prepared}, nil
}

// Evaluate returns the findings for input sorted by code and message
func (e *Engine) Evaluate(ctx context.Context, input Input) ([]Finding, error) {
	if e == nil {
		return nil, errors.New("policy engine is nil")
	}
	if input.Missing == nil {
		input.Missing = []string{}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// an undefined findings set means no rule fired
		return []Finding{}, nil
	}

	findings, err := decodeFindings(results[0].Expressions[0].Value)
	if err != nil {
		return nil, err
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Code == findings[j].Code {
			return findings[i].Message < findings[j].Message
		}
		return findings[i].Code < findings[j].Code
	})
	return findings, nil
}

// HasErrors reports whether any finding has error severity
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func decodeFindings(value any) ([]Finding, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy result: %w", err)
	}
	findings := []Finding{}
	if err := json.Unmarshal(payload, &findings); err != nil {
		return nil, fmt.Errorf("unexpected policy result: %w", err)
	}
	return findings, nil
}
