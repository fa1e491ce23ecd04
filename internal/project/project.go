// Package project locates the signing properties file of a Flutter or
// Android project and inspects how it is tracked by git.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/comaziwa/keyprops/internal/signing"
)

// AndroidDir is the Gradle root of a Flutter project
const AndroidDir = "android"

// AppDir is the Android application module inside the Gradle root
const AppDir = "app"

// Project describes where a signing properties file is expected
type Project struct {
	// Root is the repository root, or the start directory outside a repository
	Root string
	repo *git.Repository
}

// Discover finds the project containing start. Outside a git repository the
// start directory itself is treated as the root.
func Discover(start string) (*Project, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return &Project{Root: abs}, nil
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no working tree to hold key.properties
		return &Project{Root: abs}, nil
	}

	return &Project{Root: wt.Filesystem.Root(), repo: repo}, nil
}

// InRepository reports whether the project is a git working tree
func (p *Project) InRepository() bool {
	return p.repo != nil
}

// PropertiesPath returns the conventional signing properties location:
// android/key.properties when it exists or the android directory does, the
// project root otherwise.
func (p *Project) PropertiesPath() string {
	android := filepath.Join(p.Root, AndroidDir)
	candidates := []string{
		filepath.Join(android, signing.DefaultFileName),
		filepath.Join(p.Root, signing.DefaultFileName),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	if dirExists(android) {
		return candidates[0]
	}
	return candidates[1]
}

// StoreBaseDir returns the directory relative keystore paths resolve against.
// The release signing config lives in the app module, one level below the
// directory holding key.properties.
func StoreBaseDir(propertiesPath string) string {
	dir := filepath.Dir(propertiesPath)
	if app := filepath.Join(dir, AppDir); dirExists(app) {
		return app
	}
	return dir
}

// IsIgnored reports whether path is excluded by the repository's .gitignore
// files. Paths outside the working tree, or projects outside a repository,
// are reported as not ignored.
func (p *Project) IsIgnored(path string) (bool, error) {
	if p.repo == nil {
		return false, nil
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}

	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read .gitignore patterns: %w", err)
	}
	patterns = append(patterns, wt.Excludes...)

	parts := strings.Split(filepath.ToSlash(rel), "/")
	return gitignore.NewMatcher(patterns).Match(parts, false), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
