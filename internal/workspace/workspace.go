// Package workspace ties leader election, storage, indexing, and the query
// engine into the single entry point callers use. Open resolves this
// process's role for a workspace root: the first process in wins the lock
// and becomes the Leader, kicking off a background index build; every other
// process becomes a Reader over the same SQLite file. Both roles answer
// queries through the eventually-consistent read path, so results reflect
// whatever the build has persisted so far.
package workspace

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/codelensdev/codelens/internal/config"
	"github.com/codelensdev/codelens/internal/embedder"
	"github.com/codelensdev/codelens/internal/indexer"
	"github.com/codelensdev/codelens/internal/parser"
	"github.com/codelensdev/codelens/internal/query"
	"github.com/codelensdev/codelens/internal/scanner"
	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

const (
	dbFileName   = "index.db"
	lockFileName = "index.lock"
)

// Options tunes Open. The zero value is usable: defaults come from the
// workspace config file, or from config.Default() when none exists.
type Options struct {
	// Languages overrides the extension-to-language table. Nil means
	// types.DefaultLanguages().
	Languages types.Languages

	// Embedder overrides the configured embedding provider. Mostly for
	// tests; when nil the provider is built from the workspace config.
	Embedder embedder.Embedder

	// ReadyTimeout bounds how long a Reader waits for the Leader's index
	// to become queryable. Zero means the default of five seconds.
	ReadyTimeout time.Duration

	// Logger receives build progress and watch-mode diagnostics. Nil means
	// the process default logger.
	Logger *log.Logger
}

// Workspace is an open handle on an indexed workspace. It is safe for
// concurrent use. Closing a Leader does not interrupt the background build;
// the build owns the workspace lock and releases it when it finishes.
type Workspace struct {
	root   string
	cfg    config.Config
	engine *query.Engine
	ro     *storage.SQLiteStore

	leader    bool
	resident  *query.Resident
	built     atomic.Bool
	buildDone chan struct{}
	stopWatch context.CancelFunc
}

// Open resolves the process role for root and returns a queryable handle.
// Leaders return immediately while indexing proceeds in the background;
// Readers block until the index is queryable or the ready timeout elapses,
// in which case the error unwraps to an *types.InitError.
func Open(ctx context.Context, root string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, types.NewInitError("resolve root", err)
	}
	root = abs

	artifactDir := filepath.Join(root, scanner.ArtifactDirName)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, types.NewInitError("create artifact dir", err)
	}
	if err := scanner.EnsureIgnoreFile(root); err != nil {
		return nil, types.NewInitError("ensure ignore file", err)
	}

	cfg, err := config.Load(artifactDir)
	if err != nil {
		return nil, types.NewInitError("load config", err)
	}

	langs := opts.Languages
	if langs == nil {
		langs = types.DefaultLanguages()
	}
	ignore, err := scanner.LoadIgnore(root, cfg.Index.Ignore)
	if err != nil {
		return nil, types.NewInitError("load ignore file", err)
	}

	r, err := resolve(ctx, root,
		filepath.Join(artifactDir, lockFileName),
		filepath.Join(artifactDir, dbFileName),
		langs, ignore, opts.ReadyTimeout)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	ws := &Workspace{
		root:      root,
		cfg:       cfg,
		ro:        r.ro,
		leader:    r.leader,
		buildDone: make(chan struct{}),
	}

	if !r.leader {
		// Readers have no build to wait on.
		close(ws.buildDone)
		ws.engine = query.New(r.ro, nil)
		return ws, nil
	}

	factory := func() (embedder.Embedder, error) {
		if opts.Embedder != nil {
			return opts.Embedder, nil
		}
		return embedder.New(embedder.Config{
			Provider:  cfg.Embedder.Provider,
			Model:     cfg.Embedder.Model,
			BaseURL:   cfg.Embedder.BaseURL,
			CacheSize: cfg.Embedder.CacheSize,
		})
	}

	p := parser.New(langs)
	ws.resident = query.NewResident(root, langs, p, factory)
	ws.engine = query.New(r.ro, ws.resident)

	emb, err := factory()
	if err != nil {
		_ = r.rw.Close()
		_ = r.ro.Close()
		_ = r.guard.Release()
		return nil, types.NewInitError("create embedder", err)
	}

	builder := indexer.New(indexer.Config{
		Root:     root,
		Store:    r.rw,
		Parser:   p,
		Embedder: emb,
		Langs:    langs,
		Ignore:   ignore,
		Skip:     r.skip,
		Workers:  cfg.Index.Workers,
	})

	var watchCtx context.Context
	if cfg.Index.Watch {
		watchCtx, ws.stopWatch = context.WithCancel(context.Background())
	}

	// The build task owns the lock guard and the read-write handle for its
	// whole lifetime. It is deliberately detached from the caller's context:
	// closing the Workspace leaves it running to completion.
	go ws.build(builder, r, emb, opts.Embedder == nil, watchCtx, logger)

	return ws, nil
}

func (w *Workspace) build(builder *indexer.Builder, r *role, emb embedder.Embedder, ownEmbedder bool, watchCtx context.Context, logger *log.Logger) {
	defer func() {
		if ownEmbedder {
			_ = emb.Close()
		}
		_ = r.rw.Close()
		if err := r.guard.Release(); err != nil {
			logger.Printf("release workspace lock: %v", err)
		}
		close(w.buildDone)
	}()

	report, err := builder.Run(context.Background())
	if err != nil {
		logger.Printf("index build failed: %v", err)
		return
	}
	w.built.Store(true)
	indexer.LogReport(logger, report)

	if watchCtx != nil {
		if err := builder.Watch(watchCtx, logger); err != nil && watchCtx.Err() == nil {
			logger.Printf("watch mode stopped: %v", err)
		}
	}
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// IsLeader reports whether this process won the workspace lock.
func (w *Workspace) IsLeader() bool { return w.leader }

// Built reports whether the background build has completed successfully.
// False means the index may still be partial, not that it is empty.
func (w *Workspace) Built() bool { return w.built.Load() }

// BuildDone returns a channel closed when the build task has finished and
// released the lock. For Readers it is already closed.
func (w *Workspace) BuildDone() <-chan struct{} { return w.buildDone }

// Config returns the effective workspace configuration.
func (w *Workspace) Config() config.Config { return w.cfg }

// Status reports index progress as currently visible through the read path.
func (w *Workspace) Status(ctx context.Context) (types.IndexStatus, error) {
	return w.engine.Status(ctx)
}

// ListFiles returns the indexed file paths, relative to the root, sorted.
func (w *Workspace) ListFiles(ctx context.Context) ([]string, error) {
	return w.engine.ListFiles(ctx)
}

// SemanticSearch returns up to topK chunks ranked by similarity to text.
// Leader only.
func (w *Workspace) SemanticSearch(ctx context.Context, text string, topK int, minSim float64) ([]types.SimilarChunk, error) {
	if topK <= 0 {
		topK = w.cfg.Search.TopK
	}
	return w.engine.SemanticSearch(ctx, text, topK, minSim)
}

// FindAllDuplicates clusters near-identical chunks across the workspace.
func (w *Workspace) FindAllDuplicates(ctx context.Context, minSim float64, minBytes int) ([]types.DuplicateCluster, error) {
	return w.engine.FindAllDuplicates(ctx, minSim, minBytes)
}

// FindDuplicatesInFile returns chunks elsewhere in the workspace similar to
// the chunks of one file.
func (w *Workspace) FindDuplicatesInFile(ctx context.Context, file string, minSim float64) ([]types.SimilarChunk, error) {
	return w.engine.FindDuplicatesInFile(ctx, file, minSim)
}

// StructuralQuery matches chunks by kind and name glob against freshly
// parsed trees. Leader only.
func (w *Workspace) StructuralQuery(ctx context.Context, pattern string, files []string, language string) ([]types.Chunk, error) {
	return w.engine.StructuralQuery(ctx, pattern, files, language)
}

// InvalidateFile always fails: the index is refreshed by rebuild or watch
// mode, never by targeted invalidation.
func (w *Workspace) InvalidateFile(path string) error {
	return w.engine.InvalidateFile(path)
}

// Close releases the query-side resources. The background build, if any,
// keeps running; watch mode is stopped.
func (w *Workspace) Close() error {
	if w.stopWatch != nil {
		w.stopWatch()
	}
	var firstErr error
	if w.resident != nil {
		if err := w.resident.Close(); err != nil {
			firstErr = err
		}
	}
	if err := w.ro.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	return firstErr
}
