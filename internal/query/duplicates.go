package query

import (
	"sort"

	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

// unionFind tracks connected components with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// clusterDuplicates builds an undirected similarity graph over the chunks —
// an edge joins two chunks whose cosine similarity clears minSim — and
// returns its connected components of size two or more. Chunks smaller than
// minBytes are excluded before any comparison. The pairwise pass is O(n²)
// over persisted vectors, which is fine at workspace scale.
func clusterDuplicates(chunks []storage.EmbeddedChunk, minSim float64, minBytes int) []types.DuplicateCluster {
	var eligible []storage.EmbeddedChunk
	for _, c := range chunks {
		if c.Chunk.SizeBytes() >= minBytes {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	uf := newUnionFind(len(eligible))
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			if storage.CosineSimilarity(eligible[i].Vector, eligible[j].Vector) >= minSim {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]types.Chunk)
	for i, c := range eligible {
		root := uf.find(i)
		groups[root] = append(groups[root], c.Chunk)
	}

	var clusters []types.DuplicateCluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, types.DuplicateCluster{Chunks: members})
	}

	// Deterministic output order: by first member's location.
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i].Chunks[0], clusters[j].Chunks[0]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.StartLine < b.StartLine
	})
	return clusters
}
