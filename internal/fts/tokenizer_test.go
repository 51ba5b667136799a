package fts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStemsASCIITerms(t *testing.T) {
	tok := NewTokenizer("")
	out := tok.Normalize("authenticate authentication Authenticating")
	require.Contains(t, out, "authent")
}

func TestNormalizePreservesCJKRuns(t *testing.T) {
	tok := NewTokenizer("")
	out := tok.Normalize("parseConfig解析配置 done")
	require.Contains(t, out, "解析配置")
	require.Contains(t, out, "parseconfig")
}

func TestEmbeddedEngineInstallIsDeterministicallyUnavailable(t *testing.T) {
	e := newEmbeddedEngine()
	err := e.Install(t.Context())
	require.Error(t, err)
	st := e.Status()
	require.False(t, st.Ready)
}
