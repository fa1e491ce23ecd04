package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comaziwa/keyprops/internal/signing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0755))
	}
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscover_OutsideRepository(t *testing.T) {
	dir := t.TempDir()

	p, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, p.Root)
	assert.False(t, p.InRepository())

	ignored, err := p.IsIgnored(filepath.Join(dir, signing.DefaultFileName))
	require.NoError(t, err)
	assert.False(t, ignored)
}

func TestDiscover_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, AndroidDir, AppDir)
	mkdirs(t, sub)

	p, err := Discover(sub)
	require.NoError(t, err)

	assert.True(t, p.InRepository())
	assert.Equal(t, root, p.Root)
}

func TestPropertiesPath(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, root string)
		expected func(root string) string
	}{
		{
			name:     "Bare directory uses root",
			setup:    func(t *testing.T, root string) {},
			expected: func(root string) string { return filepath.Join(root, signing.DefaultFileName) },
		},
		{
			name:     "Android directory without file",
			setup:    func(t *testing.T, root string) { mkdirs(t, filepath.Join(root, AndroidDir)) },
			expected: func(root string) string { return filepath.Join(root, AndroidDir, signing.DefaultFileName) },
		},
		{
			name: "Root file wins when android has none",
			setup: func(t *testing.T, root string) {
				mkdirs(t, filepath.Join(root, AndroidDir))
				touch(t, filepath.Join(root, signing.DefaultFileName), "")
			},
			expected: func(root string) string { return filepath.Join(root, signing.DefaultFileName) },
		},
		{
			name: "Android file preferred",
			setup: func(t *testing.T, root string) {
				touch(t, filepath.Join(root, AndroidDir, signing.DefaultFileName), "")
				touch(t, filepath.Join(root, signing.DefaultFileName), "")
			},
			expected: func(root string) string { return filepath.Join(root, AndroidDir, signing.DefaultFileName) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tt.setup(t, root)

			p := &Project{Root: root}
			assert.Equal(t, tt.expected(root), p.PropertiesPath())
		})
	}
}

func TestStoreBaseDir(t *testing.T) {
	root := t.TempDir()
	android := filepath.Join(root, AndroidDir)
	mkdirs(t, android)
	props := filepath.Join(android, signing.DefaultFileName)

	assert.Equal(t, android, StoreBaseDir(props))

	mkdirs(t, filepath.Join(android, AppDir))
	assert.Equal(t, filepath.Join(android, AppDir), StoreBaseDir(props))
}

func TestIsIgnored(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	touch(t, filepath.Join(root, AndroidDir, ".gitignore"), "key.properties\n*.jks\n")

	p, err := Discover(root)
	require.NoError(t, err)

	tests := []struct {
		path     string
		expected bool
	}{
		{path: filepath.Join(root, AndroidDir, signing.DefaultFileName), expected: true},
		{path: filepath.Join(root, AndroidDir, "app", "upload.jks"), expected: true},
		{path: filepath.Join(root, signing.DefaultFileName), expected: false},
		{path: filepath.Join(root, AndroidDir, "build.gradle.kts"), expected: false},
		{path: filepath.Join(filepath.Dir(root), "elsewhere", signing.DefaultFileName), expected: false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			ignored, err := p.IsIgnored(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ignored)
		})
	}
}
