// Package indexer owns the background build: walk the workspace, skip
// unchanged files, and for each remaining file parse, embed, and persist —
// one file at a time, so readers can observe partial progress mid-scan.
package indexer

import (
	"context"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codelensdev/codelens/internal/embedder"
	"github.com/codelensdev/codelens/internal/parser"
	"github.com/codelensdev/codelens/internal/scanner"
	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

// Builder runs the indexing scan for the leader process.
type Builder struct {
	root     string
	store    storage.Store
	parser   *parser.Parser
	embedder embedder.Embedder
	langs    types.Languages
	ignore   *scanner.IgnoreSet
	skip     map[string]struct{}
	workers  int
}

// Config assembles a Builder.
type Config struct {
	Root     string
	Store    storage.Store
	Parser   *parser.Parser
	Embedder embedder.Embedder
	Langs    types.Languages
	Ignore   *scanner.IgnoreSet
	Skip     map[string]struct{} // Relative paths to skip, from UnchangedFiles
	Workers  int
}

// New creates a Builder.
func New(cfg Config) *Builder {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Builder{
		root:     cfg.Root,
		store:    cfg.Store,
		parser:   cfg.Parser,
		embedder: cfg.Embedder,
		langs:    cfg.Langs,
		ignore:   cfg.Ignore,
		skip:     cfg.Skip,
		workers:  workers,
	}
}

// embeddedFile is one file's finished work, ready to persist.
type embeddedFile struct {
	record storage.FileRecord
	chunks []storage.EmbeddedChunk
}

// Run executes one full scan. Per-file failures (read, parse, embed,
// persist) are recorded in the report and never abort the scan; only walk or
// store-level failures return an error. The parse/embed stage fans out over
// a worker pool; persistence stays on a single goroutine because the store
// has exactly one writer.
func (b *Builder) Run(ctx context.Context) (*types.BuildReport, error) {
	report := &types.BuildReport{Started: time.Now()}
	defer func() { report.Finished = time.Now() }()

	files, err := scanner.Walk(b.root, b.langs, b.ignore)
	if err != nil {
		return report, err
	}
	report.FilesTotal = len(files)

	var mu sync.Mutex // guards report counters past this point
	work := make(chan types.FileInfo)
	done := make(chan embeddedFile, b.workers)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < b.workers; i++ {
		g.Go(func() error {
			for fi := range work {
				ef, ferr := b.processFile(gctx, fi)
				if ferr != nil {
					mu.Lock()
					report.FilesFailed++
					report.Errors = append(report.Errors, *ferr)
					mu.Unlock()
					continue
				}
				select {
				case done <- ef:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(work)
		for _, fi := range files {
			if _, ok := b.skip[fi.RelPath]; ok {
				mu.Lock()
				report.FilesSkipped++
				mu.Unlock()
				continue
			}
			select {
			case work <- fi:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	go func() {
		_ = g.Wait()
		close(done)
	}()

	for ef := range done {
		if err := b.store.PersistFile(ctx, ef.record, ef.chunks); err != nil {
			mu.Lock()
			report.FilesFailed++
			report.Errors = append(report.Errors, types.FileError{
				Path: ef.record.Path, Stage: "persist", Err: err,
			})
			mu.Unlock()
			continue
		}
		mu.Lock()
		report.FilesIndexed++
		report.ChunksTotal += len(ef.chunks)
		mu.Unlock()
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return report, err
	}
	return report, ctx.Err()
}

// processFile reads, parses, and embeds one file.
func (b *Builder) processFile(ctx context.Context, fi types.FileInfo) (embeddedFile, *types.FileError) {
	src, err := os.ReadFile(fi.Path)
	if err != nil {
		return embeddedFile{}, &types.FileError{Path: fi.RelPath, Stage: "read", Err: err}
	}

	chunks, err := b.parser.Parse(fi.RelPath, src, fi.Language)
	if err != nil {
		return embeddedFile{}, &types.FileError{Path: fi.RelPath, Stage: "parse", Err: err}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return embeddedFile{}, &types.FileError{Path: fi.RelPath, Stage: "embed", Err: err}
	}

	embedded := make([]storage.EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = storage.EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}

	return embeddedFile{
		record: storage.FileRecord{
			Path:      fi.RelPath,
			Hash:      HashBytes(src),
			Language:  fi.Language,
			SizeBytes: fi.Size,
		},
		chunks: embedded,
	}, nil
}

// IndexOne re-indexes a single file in place; the watch loop uses it after a
// change event. An unchanged hash is a no-op.
func (b *Builder) IndexOne(ctx context.Context, fi types.FileInfo) error {
	src, err := os.ReadFile(fi.Path)
	if err != nil {
		return err
	}
	current, err := b.store.FileIsCurrent(ctx, fi.RelPath, HashBytes(src))
	if err != nil {
		return err
	}
	if current {
		return nil
	}

	ef, ferr := b.processFile(ctx, fi)
	if ferr != nil {
		return ferr
	}
	return b.store.PersistFile(ctx, ef.record, ef.chunks)
}

// LogReport writes a one-line scan summary plus any per-file errors.
func LogReport(logger *log.Logger, report *types.BuildReport) {
	logger.Printf("index scan: %d files, %d indexed, %d skipped, %d failed, %d chunks in %s",
		report.FilesTotal, report.FilesIndexed, report.FilesSkipped,
		report.FilesFailed, report.ChunksTotal, report.Duration().Round(time.Millisecond))
	for _, fe := range report.Errors {
		logger.Printf("index error: %v", fe)
	}
}
