package indexer

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codelensdev/codelens/pkg/types"
)

// debounceWindow coalesces the event bursts editors produce on save.
const debounceWindow = 250 * time.Millisecond

// Watch re-indexes files as they change on disk, keeping the leader's index
// warm between full scans. It blocks until ctx is cancelled. There is still
// no manual invalidation surface: readers converge through the store exactly
// as they do after a full scan.
func (b *Builder) Watch(ctx context.Context, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := b.watchDirs(watcher); err != nil {
		return err
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				// New directories join the watch set.
				if ev.Op&fsnotify.Create != 0 && !b.ignored(ev.Name) {
					_ = watcher.Add(ev.Name)
				}
				continue
			}
			if b.recognized(ev.Name) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < debounceWindow {
					continue
				}
				delete(pending, path)
				b.reindexPath(ctx, path, logger)
			}
		}
	}
}

func (b *Builder) reindexPath(ctx context.Context, path string, logger *log.Logger) {
	info, err := os.Stat(path)
	if err != nil {
		return // deleted between event and debounce; records persist until overwrite
	}

	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		return
	}
	relSlash := filepath.ToSlash(rel)

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	fi := types.FileInfo{
		Path:     path,
		RelPath:  relSlash,
		Language: b.langs.Lookup(ext),
		Size:     info.Size(),
	}

	if err := b.IndexOne(ctx, fi); err != nil {
		logger.Printf("watch reindex %s: %v", relSlash, err)
		return
	}
	logger.Printf("watch reindexed %s", relSlash)
}

// watchDirs registers the root and every non-ignored subdirectory.
func (b *Builder) watchDirs(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != b.root && b.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (b *Builder) ignored(path string) bool {
	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		return true
	}
	return b.ignore.Match(filepath.Base(path), filepath.ToSlash(rel))
}

func (b *Builder) recognized(path string) bool {
	if b.ignored(path) {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return b.langs.Lookup(ext) != ""
}
