// Package query implements the read side of the index: listing, status,
// semantic search, duplicate detection, and structural queries. Operations
// dispatch on role: every process can query persisted data, but operations
// needing the resident embedder or parse results are leader-only.
package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codelensdev/codelens/internal/embedder"
	"github.com/codelensdev/codelens/internal/parser"
	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

// Resident is the leader's in-process parse/embed context. It is guarded by
// one reader-writer lock and never crosses process boundaries: readers in
// other processes only ever see the persisted data.
type Resident struct {
	mu sync.RWMutex

	root   string
	langs  types.Languages
	parser *parser.Parser

	// The embedder is materialized on first semantic search, not at open.
	embedderFactory func() (embedder.Embedder, error)
	embedder        embedder.Embedder

	// Parse results cached per file for structural queries.
	trees map[string][]types.Chunk
}

// NewResident creates the leader context. factory is invoked at most once,
// lazily, under the write lock.
func NewResident(root string, langs types.Languages, p *parser.Parser, factory func() (embedder.Embedder, error)) *Resident {
	return &Resident{
		root:            root,
		langs:           langs,
		parser:          p,
		embedderFactory: factory,
		trees:           make(map[string][]types.Chunk),
	}
}

// Close releases the materialized embedder, if any.
func (r *Resident) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.embedder != nil {
		return r.embedder.Close()
	}
	return nil
}

// Engine answers queries against one store handle. A nil resident means
// reader mode.
type Engine struct {
	store    storage.Store
	resident *Resident
}

// New creates an Engine. resident is nil for readers.
func New(store storage.Store, resident *Resident) *Engine {
	return &Engine{store: store, resident: resident}
}

// IsLeader reports whether leader-only operations are available.
func (e *Engine) IsLeader() bool {
	return e.resident != nil
}

// ListFiles returns all persisted file paths, ordered.
func (e *Engine) ListFiles(ctx context.Context) ([]string, error) {
	files, err := e.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

// Status derives the index state from the store on every call; it is never
// cached, so readers see progress as the leader's per-file commits land.
func (e *Engine) Status(ctx context.Context) (types.IndexStatus, error) {
	filesTotal, err := e.store.FileCount(ctx)
	if err != nil {
		return types.IndexStatus{}, err
	}
	chunkCount, err := e.store.EmbeddedChunkCount(ctx)
	if err != nil {
		return types.IndexStatus{}, err
	}

	status := types.IndexStatus{
		FilesTotal: filesTotal,
		Ready:      filesTotal > 0,
	}
	if chunkCount > 0 {
		status.FilesEmbedded = filesTotal
	}
	return status, nil
}

// SemanticSearch embeds the query text and ranks every persisted chunk by
// cosine similarity, keeping scores >= minSim, descending, truncated to
// topK. Leader-only: it requires the resident embedding model, which is
// materialized lazily under the write lock on first use.
func (e *Engine) SemanticSearch(ctx context.Context, text string, topK int, minSim float64) ([]types.SimilarChunk, error) {
	if e.resident == nil {
		return nil, fmt.Errorf("semantic search: %w", types.ErrNotLeader)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("semantic search: empty query")
	}

	e.resident.mu.Lock()
	emb, err := e.resident.materializeEmbedder()
	if err != nil {
		e.resident.mu.Unlock()
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	queryVec, err := emb.Embed(ctx, text)
	e.resident.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := e.store.AllEmbeddedChunks(ctx)
	if err != nil {
		return nil, err
	}

	var results []types.SimilarChunk
	for _, c := range chunks {
		score := storage.CosineSimilarity(queryVec, c.Vector)
		if score >= minSim {
			results = append(results, types.SimilarChunk{Chunk: c.Chunk, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// materializeEmbedder must be called with the write lock held.
func (r *Resident) materializeEmbedder() (embedder.Embedder, error) {
	if r.embedder == nil {
		emb, err := r.embedderFactory()
		if err != nil {
			return nil, err
		}
		r.embedder = emb
	}
	return r.embedder, nil
}

// FindAllDuplicates clusters persisted chunks that are pairwise similar
// above minSim, ignoring chunks under minBytes. Pure vector math over
// persisted data, so it is available in both roles. An unsatisfiable
// threshold yields an empty result, never an error.
func (e *Engine) FindAllDuplicates(ctx context.Context, minSim float64, minBytes int) ([]types.DuplicateCluster, error) {
	e.readLock()
	defer e.readUnlock()

	chunks, err := e.store.AllEmbeddedChunks(ctx)
	if err != nil {
		return nil, err
	}
	return clusterDuplicates(chunks, minSim, minBytes), nil
}

// FindDuplicatesInFile ranks chunks from other files by similarity to the
// chunks owned by file, keeping scores >= minSim.
func (e *Engine) FindDuplicatesInFile(ctx context.Context, file string, minSim float64) ([]types.SimilarChunk, error) {
	e.readLock()
	defer e.readUnlock()

	own, err := e.store.ChunksByFile(ctx, file)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, nil
	}

	all, err := e.store.AllEmbeddedChunks(ctx)
	if err != nil {
		return nil, err
	}

	// For each foreign chunk keep its best score against the file.
	var results []types.SimilarChunk
	for _, other := range all {
		if other.Chunk.FilePath == file {
			continue
		}
		best := -1.0
		for _, mine := range own {
			if s := storage.CosineSimilarity(mine.Vector, other.Vector); s > best {
				best = s
			}
		}
		if best >= minSim {
			results = append(results, types.SimilarChunk{Chunk: other.Chunk, Score: best})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// StructuralQuery matches resident parse results against a "kind:nameglob"
// pattern (for example "method:Get*" or "function:**"). Leader-only:
// readers never hold parse trees, only persisted chunk data. files limits
// the query to specific relative paths; empty means every indexed file of
// the language.
func (e *Engine) StructuralQuery(ctx context.Context, pattern string, files []string, language string) ([]types.Chunk, error) {
	if e.resident == nil {
		return nil, fmt.Errorf("structural query: %w", types.ErrNotLeader)
	}

	kind, nameGlob, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		records, err := e.store.ListFiles(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if language == "" || rec.Language == language {
				files = append(files, rec.Path)
			}
		}
	}

	e.resident.mu.Lock()
	defer e.resident.mu.Unlock()

	var matches []types.Chunk
	for _, rel := range files {
		chunks, err := e.resident.treeFor(rel)
		if err != nil {
			continue // unparsable or vanished files simply don't match
		}
		for _, c := range chunks {
			if kind != "" && string(c.Kind) != kind {
				continue
			}
			if ok, _ := doublestar.Match(nameGlob, c.Name); !ok {
				continue
			}
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// treeFor returns cached parse results for a file, parsing on first use.
// Must be called with the write lock held.
func (r *Resident) treeFor(rel string) ([]types.Chunk, error) {
	if chunks, ok := r.trees[rel]; ok {
		return chunks, nil
	}

	path := filepath.Join(r.root, filepath.FromSlash(rel))
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.TrimPrefix(filepath.Ext(rel), ".")
	lang := r.langs.Lookup(ext)
	if lang == "" {
		return nil, fmt.Errorf("unrecognized extension: %s", rel)
	}

	chunks, err := r.parser.Parse(rel, src, lang)
	if err != nil {
		return nil, err
	}
	r.trees[rel] = chunks
	return chunks, nil
}

// parsePattern splits "kind:nameglob". A bare glob matches every kind.
func parsePattern(pattern string) (kind, nameGlob string, err error) {
	if pattern == "" {
		return "", "", fmt.Errorf("empty structural pattern")
	}
	if idx := strings.IndexByte(pattern, ':'); idx >= 0 {
		kind = pattern[:idx]
		if kind == "*" {
			kind = ""
		}
		return kind, pattern[idx+1:], nil
	}
	return "", pattern, nil
}

// InvalidateFile is rejected unconditionally. The consistency model is
// eventually correct on next open: a later process recomputes the file's
// hash and discovers the change naturally.
func (e *Engine) InvalidateFile(path string) error {
	return fmt.Errorf("invalidate %s: %w", path, types.ErrUnsupported)
}

// Read-only query paths take the resident read lock when one exists, so
// they coexist with a concurrent lazy embedder load.
func (e *Engine) readLock() {
	if e.resident != nil {
		e.resident.mu.RLock()
	}
}

func (e *Engine) readUnlock() {
	if e.resident != nil {
		e.resident.mu.RUnlock()
	}
}
