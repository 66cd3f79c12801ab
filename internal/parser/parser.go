// Package parser turns file bytes into semantic chunk boundaries. Go files
// are parsed with go/ast; other recognized languages go through a heuristic
// block chunker keyed on top-level definition markers.
package parser

import (
	"fmt"

	"github.com/codelensdev/codelens/pkg/types"
)

// Parser extracts semantic chunks from source files.
type Parser struct {
	langs types.Languages
}

// New creates a Parser over the injected language map.
func New(langs types.Languages) *Parser {
	return &Parser{langs: langs}
}

// Parse extracts chunks from src. relPath is recorded on each chunk as the
// owning file. A file yielding no definitions produces a single whole-file
// block chunk so every indexed file is searchable.
func (p *Parser) Parse(relPath string, src []byte, language string) ([]types.Chunk, error) {
	var (
		chunks []types.Chunk
		err    error
	)

	switch language {
	case "go":
		chunks, err = parseGo(relPath, src)
	default:
		chunks, err = parseHeuristic(relPath, src, language)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}

	if len(chunks) == 0 {
		chunks = []types.Chunk{wholeFileChunk(relPath, src)}
	}
	return chunks, nil
}

func wholeFileChunk(relPath string, src []byte) types.Chunk {
	lines := 1
	for _, b := range src {
		if b == '\n' {
			lines++
		}
	}
	return types.Chunk{
		FilePath:  relPath,
		Name:      relPath,
		Kind:      types.KindBlock,
		StartLine: 1,
		EndLine:   lines,
		StartByte: 0,
		EndByte:   len(src),
		Content:   string(src),
	}
}
