package indexer

import (
	"context"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/codelensdev/codelens/internal/scanner"
	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

// HashBytes returns the content hash stored in file records, a hex-encoded
// xxhash64. Embedding dominates indexing cost; comparing this hash against
// the store converts a full re-embed into a cheap per-file check when a
// workspace is reopened.
func HashBytes(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// HashFile hashes a file's content from disk.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// UnchangedFiles walks root and returns the set of relative paths whose
// stored content hash matches the file on disk. These files are skipped
// entirely during the build: no parse, no embed, no write.
func UnchangedFiles(ctx context.Context, root string, store storage.Store, langs types.Languages, ignore *scanner.IgnoreSet) (map[string]struct{}, error) {
	files, err := scanner.Walk(root, langs, ignore)
	if err != nil {
		return nil, err
	}

	unchanged := make(map[string]struct{})
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hash, err := HashFile(fi.Path)
		if err != nil {
			continue // unreadable now, the build will report it
		}
		current, err := store.FileIsCurrent(ctx, fi.RelPath, hash)
		if err != nil {
			return nil, err
		}
		if current {
			unchanged[fi.RelPath] = struct{}{}
		}
	}
	return unchanged, nil
}
