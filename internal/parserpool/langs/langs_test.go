package langs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/types"
)

func TestGoExtractsFunctionsAndMethods(t *testing.T) {
	src := []byte(`package demo

func Plain() {}

type Thing struct{}

func (t *Thing) Method() {}

type Shape interface {
	Area() float64
}
`)
	out, err := Go.Extract(src)
	require.NoError(t, err)

	names := map[string]types.SymbolKind{}
	for _, e := range out {
		names[e.Name] = e.Kind
	}
	require.Equal(t, types.SymbolKindFunction, names["Plain"])
	require.Equal(t, types.SymbolKindMethod, names["Method"])
	require.Equal(t, types.SymbolKindClass, names["Thing"])
	require.Equal(t, types.SymbolKindInterface, names["Shape"])
}

func TestJavaScriptExtractsFunctionsAndClasses(t *testing.T) {
	src := []byte(`
function greet() {}

class Widget {
	render() {}
}
`)
	out, err := JavaScript.Extract(src)
	require.NoError(t, err)

	var gotFunc, gotClass, gotMethod bool
	for _, e := range out {
		switch {
		case e.Name == "greet" && e.Kind == types.SymbolKindFunction:
			gotFunc = true
		case e.Name == "Widget" && e.Kind == types.SymbolKindClass:
			gotClass = true
		case e.Name == "render" && e.Kind == types.SymbolKindMethod:
			gotMethod = true
		}
	}
	require.True(t, gotFunc)
	require.True(t, gotClass)
	require.True(t, gotMethod)
}

func TestPythonExtractsFunctionsAndClasses(t *testing.T) {
	src := []byte("def greet():\n    pass\n\nclass Widget:\n    pass\n")
	out, err := Python.Extract(src)
	require.NoError(t, err)

	var gotFunc, gotClass bool
	for _, e := range out {
		switch {
		case e.Name == "greet" && e.Kind == types.SymbolKindFunction:
			gotFunc = true
		case e.Name == "Widget" && e.Kind == types.SymbolKindClass:
			gotClass = true
		}
	}
	require.True(t, gotFunc)
	require.True(t, gotClass)
}

func TestForExtensionLookup(t *testing.T) {
	require.Equal(t, Go, ForExtension(".go"))
	require.Equal(t, JavaScript, ForExtension(".jsx"))
	require.Equal(t, Python, ForExtension(".pyi"))
	require.Nil(t, ForExtension(".rb"))
}
