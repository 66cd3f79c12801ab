package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelensdev/codelens/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(files []types.FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestWalk_ExtensionAllowList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "foo.rs", "fn main() {}")
	writeFile(t, root, "bar.bin", "\x00\x01\x02")
	writeFile(t, root, "baz.txt", "notes")

	ign, err := LoadIgnore(root, nil)
	require.NoError(t, err)

	files, err := Walk(root, types.DefaultLanguages(), ign)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.rs"}, relPaths(files))
	assert.Equal(t, "rust", files[0].Language)
}

func TestWalk_IgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = 1")
	writeFile(t, root, ".codelens/index.db", "not a db")
	writeFile(t, root, "sub/util.py", "def f():\n    pass")

	ign, err := LoadIgnore(root, nil)
	require.NoError(t, err)

	files, err := Walk(root, types.DefaultLanguages(), ign)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "sub/util.py"}, relPaths(files))
}

func TestWalk_SkipsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.go", "")
	writeFile(t, root, "full.go", "package x")

	ign, err := LoadIgnore(root, nil)
	require.NoError(t, err)

	files, err := Walk(root, types.DefaultLanguages(), ign)
	require.NoError(t, err)
	assert.Equal(t, []string{"full.go"}, relPaths(files))
}

func TestWalk_ExtraPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package a")
	writeFile(t, root, "gen/skip.go", "package b")

	ign, err := LoadIgnore(root, []string{"gen/**"})
	require.NoError(t, err)

	files, err := Walk(root, types.DefaultLanguages(), ign)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, relPaths(files))
}

func TestEnsureIgnoreFile_CreatesDefaults(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, EnsureIgnoreFile(root))

	data, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), ArtifactDirName)
	assert.Contains(t, string(data), "node_modules")
}

func TestEnsureIgnoreFile_AppendsArtifactDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, IgnoreFileName)
	require.NoError(t, os.WriteFile(path, []byte("vendor\n"), 0o644))

	require.NoError(t, EnsureIgnoreFile(root))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ArtifactDirName)
	assert.Contains(t, string(data), "vendor")
}

func TestEnsureIgnoreFile_Idempotent(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, EnsureIgnoreFile(root))
	first, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	require.NoError(t, err)

	require.NoError(t, EnsureIgnoreFile(root))
	second, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, strings.Count(string(second), ArtifactDirName+"\n"))
}
