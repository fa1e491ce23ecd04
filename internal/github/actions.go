package github

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sethvargo/go-githubactions"

	"github.com/comaziwa/keyprops/internal/export"
)

// Context describes the GitHub Actions run keyprops executes in
type Context struct {
	Actions      bool   `json:"actions"`
	Repository   string `json:"repository"`
	RunID        string `json:"run_id"`
	RunNumber    string `json:"run_number"`
	WorkflowName string `json:"workflow_name"`
	JobName      string `json:"job"`
	RefName      string `json:"ref_name"`
	EventName    string `json:"event_name"`
	Actor        string `json:"actor"`
	EnvFile      string `json:"-"`
}

// DetectContext collects the GitHub Actions environment
func DetectContext() *Context {
	return &Context{
		Actions:      getEnv("GITHUB_ACTIONS") == "true",
		Repository:   getEnv("GITHUB_REPOSITORY"),
		RunID:        getEnv("GITHUB_RUN_ID"),
		RunNumber:    getEnv("GITHUB_RUN_NUMBER"),
		WorkflowName: getEnv("GITHUB_WORKFLOW"),
		JobName:      getEnv("GITHUB_JOB"),
		RefName:      getEnv("GITHUB_REF_NAME"),
		EventName:    getEnv("GITHUB_EVENT_NAME"),
		Actor:        getEnv("GITHUB_ACTOR"),
		EnvFile:      getEnv("GITHUB_ENV"),
	}
}

// maskLines returns the non-empty lines of value. The runner masks log
// output line by line, so each line of a multi-line secret is masked.
func maskLines(value string) []string {
	var lines []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ExportEnv masks every secret on stdout, then appends all vars to the
// environment file so later steps of the job can read them.
func ExportEnv(stdout io.Writer, envFile string, vars []export.Var) error {
	if envFile == "" {
		return errors.New("GITHUB_ENV is not set; export --format github only works inside GitHub Actions")
	}

	// the file command writer does not report failures, so check the file
	// can be appended to before any variable is exported
	f, err := os.OpenFile(envFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", envFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", envFile, err)
	}

	action := githubactions.New(
		githubactions.WithWriter(stdout),
		githubactions.WithGetenv(func(key string) string {
			if key == "GITHUB_ENV" {
				return envFile
			}
			return getEnv(key)
		}),
	)

	// masks must reach the runner before any value can be echoed
	for _, v := range vars {
		if v.Secret {
			for _, line := range maskLines(v.Value) {
				action.AddMask(line)
			}
		}
	}
	for _, v := range vars {
		action.SetEnv(v.Name, v.Value)
	}
	return nil
}

// getEnv gets an environment variable value
func getEnv(key string) string {
	return os.Getenv(key)
}
