package parser

import (
	"regexp"
	"strings"

	"github.com/codelensdev/codelens/pkg/types"
)

// definition matches a top-level definition line and names its chunk kind.
type definition struct {
	re   *regexp.Regexp
	kind types.ChunkKind
}

// Definition markers per language. The first capture group is the chunk
// name. Only column-zero (or shallowly indented, for impl blocks and
// namespaces) definitions start new chunks.
var languageDefs = map[string][]definition{
	"rust": {
		{regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+(\w+)`), types.KindType},
		{regexp.MustCompile(`^impl(?:<[^>]*>)?\s+(?:\w+\s+for\s+)?(\w+)`), types.KindType},
	},
	"python": {
		{regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^class\s+(\w+)`), types.KindClass},
	},
	"javascript": {
		{regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`), types.KindFunction},
	},
	"java": {
		{regexp.MustCompile(`^\s*(?:public|protected|private)?\s*(?:static\s+)?(?:final\s+)?(?:abstract\s+)?(?:class|interface|enum|record)\s+(\w+)`), types.KindClass},
	},
	"c": {
		{regexp.MustCompile(`^\w[\w\s\*]*?(\w+)\s*\([^;]*$`), types.KindFunction},
		{regexp.MustCompile(`^(?:typedef\s+)?(?:struct|enum|union)\s+(\w+)`), types.KindType},
	},
	"ruby": {
		{regexp.MustCompile(`^\s*def\s+(?:self\.)?(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^(?:class|module)\s+(\w+)`), types.KindClass},
	},
}

func init() {
	languageDefs["typescript"] = languageDefs["javascript"]
	languageDefs["cpp"] = languageDefs["c"]
}

// indentLanguages close a block when indentation returns to the definition
// level; everything else is brace-tracked (ruby blocks close on "end", which
// dedents the same way in practice).
var indentLanguages = map[string]bool{"python": true, "ruby": true}

// parseHeuristic extracts definition-shaped blocks from a non-Go source
// file. It is deliberately permissive: a miss means the file falls back to a
// whole-file chunk, never an error.
func parseHeuristic(relPath string, src []byte, language string) ([]types.Chunk, error) {
	defs, ok := languageDefs[language]
	if !ok {
		return nil, nil
	}

	lines := strings.Split(string(src), "\n")
	offsets := lineOffsets(lines)

	var chunks []types.Chunk
	i := 0
	for i < len(lines) {
		name, kind, matched := matchDefinition(defs, lines[i])
		if !matched {
			i++
			continue
		}

		var end int
		if indentLanguages[language] {
			end = indentBlockEnd(lines, i)
		} else {
			end = braceBlockEnd(lines, i)
		}

		startByte := offsets[i]
		endByte := offsets[end] + len(lines[end])
		chunks = append(chunks, types.Chunk{
			FilePath:  relPath,
			Name:      name,
			Kind:      kind,
			StartLine: i + 1,
			EndLine:   end + 1,
			StartByte: startByte,
			EndByte:   endByte,
			Content:   string(src[startByte:endByte]),
		})
		i = end + 1
	}
	return chunks, nil
}

func matchDefinition(defs []definition, line string) (string, types.ChunkKind, bool) {
	for _, d := range defs {
		if m := d.re.FindStringSubmatch(line); m != nil {
			return m[1], d.kind, true
		}
	}
	return "", "", false
}

// braceBlockEnd scans forward from the definition line until brace depth
// returns to zero. Definitions without a body (declarations, one-liners)
// end on their own line.
func braceBlockEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i
		}
		// Signatures may span a few lines before the body opens; a
		// definition whose body never opens ends on its own line.
		if !opened && i-start >= 4 {
			return start
		}
	}
	return len(lines) - 1
}

// indentBlockEnd scans forward until a non-blank line at or below the
// definition's indentation level.
func indentBlockEnd(lines []string, start int) int {
	base := indentOf(lines[start])
	end := start
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= base {
			break
		}
		end = i
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 8
		default:
			return n
		}
	}
	return n
}

func lineOffsets(lines []string) []int {
	offsets := make([]int, len(lines))
	off := 0
	for i, line := range lines {
		offsets[i] = off
		off += len(line) + 1
	}
	return offsets
}
