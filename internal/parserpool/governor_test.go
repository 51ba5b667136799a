package parserpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGovernorDefaultsToFullMultiplier(t *testing.T) {
	g := newGovernor(4)
	require.Equal(t, 4, g.workers())
}

func TestGovernorWorkersScalesWithMultiplier(t *testing.T) {
	g := newGovernor(4)
	g.multiplier.Store(0.3)
	require.Equal(t, 1, g.workers())

	g.multiplier.Store(2.5)
	require.Equal(t, 10, g.workers())
}

func TestParseMemInfoKB(t *testing.T) {
	require.Equal(t, uint64(16384000), parseMemInfoKB("MemTotal:       16384000 kB"))
	require.Equal(t, uint64(0), parseMemInfoKB("malformed"))
}
