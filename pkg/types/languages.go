package types

// Languages maps a file extension (without the leading dot) to a language
// name. Files with extensions outside the map are invisible to every layer:
// they are never hashed, parsed, or listed. The map is an injected read-only
// capability, not process-wide state.
type Languages map[string]string

// DefaultLanguages covers the extensions the index recognizes out of the box.
func DefaultLanguages() Languages {
	return Languages{
		"go":   "go",
		"rs":   "rust",
		"py":   "python",
		"js":   "javascript",
		"jsx":  "javascript",
		"ts":   "typescript",
		"tsx":  "typescript",
		"java": "java",
		"c":    "c",
		"h":    "c",
		"cpp":  "cpp",
		"cc":   "cpp",
		"hpp":  "cpp",
		"rb":   "ruby",
	}
}

// Lookup returns the language for an extension, or "" if unrecognized.
func (l Languages) Lookup(ext string) string {
	return l[ext]
}
