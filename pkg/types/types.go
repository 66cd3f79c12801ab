package types

import "time"

// ChunkKind classifies a semantic chunk extracted from a source file.
type ChunkKind string

const (
	KindFunction ChunkKind = "function"
	KindMethod   ChunkKind = "method"
	KindType     ChunkKind = "type"
	KindClass    ChunkKind = "class"
	KindBlock    ChunkKind = "block"
)

// Chunk is a semantically meaningful sub-unit of one source file. It is the
// atomic unit of embedding, search, and duplicate comparison.
type Chunk struct {
	ID        int64
	FilePath  string // Relative to the workspace root, slash-separated
	Name      string
	Kind      ChunkKind
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
	Content   string
}

// SizeBytes returns the byte length of the chunk content.
func (c *Chunk) SizeBytes() int {
	return len(c.Content)
}

// FileInfo describes a source file discovered during a workspace walk.
type FileInfo struct {
	Path     string // Absolute path
	RelPath  string // Slash-separated path relative to the workspace root
	Language string
	Size     int64
}

// IndexStatus reports the state of a workspace index. It is derived from the
// store on every call and never cached.
type IndexStatus struct {
	FilesTotal    int
	FilesEmbedded int
	Ready         bool
}

// SimilarChunk is a chunk together with its cosine similarity to a query,
// in [-1, 1].
type SimilarChunk struct {
	Chunk Chunk
	Score float64
}

// DuplicateCluster is a set of two or more chunks, possibly from different
// files, that are pairwise similar above a configured threshold.
type DuplicateCluster struct {
	Chunks []Chunk
}

// Files returns the distinct file paths covered by the cluster, in first-seen
// order.
func (d *DuplicateCluster) Files() []string {
	seen := make(map[string]bool, len(d.Chunks))
	var files []string
	for _, c := range d.Chunks {
		if !seen[c.FilePath] {
			seen[c.FilePath] = true
			files = append(files, c.FilePath)
		}
	}
	return files
}

// FileError records a single file's failure during an index scan. Per-file
// failures never abort the scan.
type FileError struct {
	Path  string
	Stage string // "read", "parse", "embed", "persist"
	Err   error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Stage + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

// BuildReport summarizes one index scan.
type BuildReport struct {
	FilesTotal   int
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	ChunksTotal  int
	Started      time.Time
	Finished     time.Time
	Errors       []FileError
}

// Duration returns the wall time of the scan.
func (r *BuildReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
