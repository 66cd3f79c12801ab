package parser

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/codelensdev/codelens/pkg/types"
)

// parseGo extracts top-level declarations from a Go source file. Syntax
// errors surface to the caller; a broken file is a per-file index failure,
// not a scan failure.
func parseGo(relPath string, src []byte) ([]types.Chunk, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, relPath, src, 0)
	if err != nil {
		return nil, err
	}

	var chunks []types.Chunk
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			kind := types.KindFunction
			if d.Recv != nil {
				kind = types.KindMethod
			}
			chunks = append(chunks, declChunk(fset, src, relPath, d.Name.Name, kind, d))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				// Single-spec decls keep the surrounding "type" keyword
				// and doc comment; grouped decls chunk per spec.
				var node ast.Node = ts
				if len(d.Specs) == 1 {
					node = d
				}
				chunks = append(chunks, declChunk(fset, src, relPath, ts.Name.Name, types.KindType, node))
			}
		}
	}
	return chunks, nil
}

func declChunk(fset *token.FileSet, src []byte, relPath, name string, kind types.ChunkKind, node ast.Node) types.Chunk {
	start := fset.Position(node.Pos())
	end := fset.Position(node.End())
	return types.Chunk{
		FilePath:  relPath,
		Name:      name,
		Kind:      kind,
		StartLine: start.Line,
		EndLine:   end.Line,
		StartByte: start.Offset,
		EndByte:   end.Offset,
		Content:   string(src[start.Offset:end.Offset]),
	}
}
