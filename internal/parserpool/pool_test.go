package parserpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/deckard/internal/types"
)

func TestExtOf(t *testing.T) {
	require.Equal(t, ".go", extOf("a/b/main.go"))
	require.Equal(t, "", extOf("a/b/Dockerfile"))
	require.Equal(t, "", extOf("noext"))
}

func TestDispatchLangByExtension(t *testing.T) {
	l := dispatchLang("main.go", nil)
	require.NotNil(t, l)
	require.Equal(t, "go", l.Name)
}

func TestDispatchLangUnknownExtensionSkips(t *testing.T) {
	l := dispatchLang("data.bin", []byte{0, 1, 2})
	require.Nil(t, l)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	require.Equal(t, time.Second, Backoff(0))
	require.Greater(t, Backoff(3), Backoff(1))
	require.LessOrEqual(t, Backoff(100), 24*time.Hour)
}

func TestPoolExtractsGoSymbols(t *testing.T) {
	p := New(2)
	defer p.Close()

	src := []byte("package demo\n\nfunc Hello() string { return \"hi\" }\n")
	root := types.NewRootID("/tmp/demo")
	path := types.NewFileID(root, "hello.go")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Submit(ctx, Task{Path: path, RootID: root, RelPath: "hello.go", Content: src}))

	select {
	case res := <-p.Results():
		require.Equal(t, types.ParseStatusOK, res.Status)
		require.Len(t, res.Symbols, 1)
		require.Equal(t, "Hello", res.Symbols[0].Name)
		require.Equal(t, types.SymbolKindFunction, res.Symbols[0].Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for parser result")
	}
}

func TestPoolSkipsUnknownExtension(t *testing.T) {
	p := New(1)
	defer p.Close()

	root := types.NewRootID("/tmp/demo")
	path := types.NewFileID(root, "asset.bin")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Submit(ctx, Task{Path: path, RootID: root, RelPath: "asset.bin", Content: []byte{0, 1, 2}}))

	select {
	case res := <-p.Results():
		require.Equal(t, types.ParseStatusSkipped, res.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for parser result")
	}
}

func TestMultiplierForTiers(t *testing.T) {
	require.Equal(t, 0.3, multiplierFor(95, 10))
	require.Equal(t, 0.3, multiplierFor(10, 95))
	require.Equal(t, 2.5, multiplierFor(10, 20))
	require.Equal(t, 1.0, multiplierFor(50, 50))
}
