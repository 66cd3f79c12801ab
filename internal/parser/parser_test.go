package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelensdev/codelens/pkg/types"
)

const goSample = `package sample

import "fmt"

// Greet says hello.
func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

type Greeter struct {
	Prefix string
}

func (g *Greeter) Greet(name string) string {
	return g.Prefix + name
}
`

func TestParse_Go(t *testing.T) {
	p := New(types.DefaultLanguages())

	chunks, err := p.Parse("sample.go", []byte(goSample), "go")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "Greet", chunks[0].Name)
	assert.Equal(t, types.KindFunction, chunks[0].Kind)
	assert.Contains(t, chunks[0].Content, `return fmt.Sprintf`)

	assert.Equal(t, "Greeter", chunks[1].Name)
	assert.Equal(t, types.KindType, chunks[1].Kind)

	assert.Equal(t, "Greet", chunks[2].Name)
	assert.Equal(t, types.KindMethod, chunks[2].Kind)

	for _, c := range chunks {
		assert.Equal(t, "sample.go", c.FilePath)
		assert.Equal(t, c.Content, string([]byte(goSample)[c.StartByte:c.EndByte]))
		assert.LessOrEqual(t, c.StartLine, c.EndLine)
	}
}

func TestParse_GoSyntaxError(t *testing.T) {
	p := New(types.DefaultLanguages())

	_, err := p.Parse("broken.go", []byte("package x\nfunc {"), "go")
	assert.Error(t, err)
}

func TestParse_Rust(t *testing.T) {
	src := `use std::fmt;

pub fn add(a: i32, b: i32) -> i32 {
    a + b
}

struct Point {
    x: i32,
    y: i32,
}

impl Point {
    fn origin() -> Point {
        Point { x: 0, y: 0 }
    }
}
`
	p := New(types.DefaultLanguages())
	chunks, err := p.Parse("lib.rs", []byte(src), "rust")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	names := chunkNames(chunks)
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "Point")
}

func TestParse_Python(t *testing.T) {
	src := `import os

def helper(x):
    y = x + 1
    return y

class Widget:
    def render(self):
        return "<div>"

TOP = 1
`
	p := New(types.DefaultLanguages())
	chunks, err := p.Parse("app.py", []byte(src), "python")
	require.NoError(t, err)

	names := chunkNames(chunks)
	assert.Contains(t, names, "helper")
	assert.Contains(t, names, "Widget")

	for _, c := range chunks {
		if c.Name == "helper" {
			assert.Contains(t, c.Content, "return y")
			assert.NotContains(t, c.Content, "class Widget")
		}
	}
}

func TestParse_JavaScriptArrow(t *testing.T) {
	src := `export const sum = (a, b) => {
  return a + b;
};

function classic() {
  return 1;
}
`
	p := New(types.DefaultLanguages())
	chunks, err := p.Parse("sum.js", []byte(src), "javascript")
	require.NoError(t, err)

	names := chunkNames(chunks)
	assert.Contains(t, names, "sum")
	assert.Contains(t, names, "classic")
}

func TestParse_FallbackWholeFile(t *testing.T) {
	src := "#define MAX 10\n"
	p := New(types.DefaultLanguages())

	chunks, err := p.Parse("defs.h", []byte(src), "c")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.KindBlock, chunks[0].Kind)
	assert.Equal(t, src, chunks[0].Content)
}

func chunkNames(chunks []types.Chunk) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name
	}
	return names
}
