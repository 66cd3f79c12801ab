// Package scanner walks a workspace tree, applying ignore rules and the
// language extension allow-list, and owns the workspace ignore file.
package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/codelensdev/codelens/pkg/types"
)

// ArtifactDirName is the directory under the workspace root holding the
// index database, WAL sidecars, lock file, and configuration.
const ArtifactDirName = ".codelens"

// maxFileSize is the largest file considered for indexing (1 MB).
const maxFileSize = 1 << 20

// Walk traverses the tree rooted at root and returns every indexable source
// file: recognized extension, not ignored, not empty, not oversized, not a
// symlink. Results are ordered as visited (lexical within a directory).
func Walk(root string, langs types.Languages, ignore *IgnoreSet) ([]types.FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []types.FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, the walk continues
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			rel, _ := filepath.Rel(absRoot, path)
			if ignore.Match(d.Name(), filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		lang := langs.Lookup(ext)
		if lang == "" {
			return nil
		}

		rel, _ := filepath.Rel(absRoot, path)
		relSlash := filepath.ToSlash(rel)
		if ignore.Match(d.Name(), relSlash) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || info.Size() > maxFileSize {
			return nil
		}

		files = append(files, types.FileInfo{
			Path:     path,
			RelPath:  relSlash,
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
