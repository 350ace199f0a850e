package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/consensus"
)

// testConfig pins every config key the node reads, so tests cannot
// leak state into each other through the shared viper instance.
func testConfig(t *testing.T, dir string) {
	t.Helper()

	viper.Set("chain.dataDir", dir)
	viper.Set("chain.keyFile", "")
	viper.Set("chain.genesisFile", "")
	viper.Set("consensus.chainId", consensus.DefaultChainID)
	viper.Set("consensus.minWitnesses", consensus.DefaultMinWitnesses)
	viper.Set("consensus.maxWitnesses", consensus.DefaultMaxWitnesses)
	viper.Set("consensus.stallRounds", consensus.DefaultStallRounds)
	viper.Set("consensus.blockGasLimit", consensus.DefaultBlockGasLimit)
	viper.Set("consensus.proposeInterval", consensus.DefaultProposeInterval)
	viper.Set("consensus.clockDrift", consensus.DefaultClockDrift)
	viper.Set("consensus.allowEmptyProposals", false)
	viper.Set("consensus.maxPendingBlocks", consensus.DefaultMaxPending)
	viper.Set("consensus.mempoolSize", 128)
}

func TestNodeBootstrapsDevChain(t *testing.T) {
	ctx := context.Background()
	testConfig(t, t.TempDir())

	n, err := NewNode(ctx, WithDefaultOptions())
	require.NoError(t, err)
	defer n.Stop()

	assert.Equal(t, uint64(0), n.Engine().FinalizedHeight())
	assert.Equal(t, consensus.Finalized, n.Engine().State(0))
	assert.Empty(t, n.Engine().FinalizedOrder())
}

func TestNodeRefusesForeignDataDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	specA := filepath.Join(dir, "a.json")
	specB := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(specA, []byte(`{"chainId":970,"timestamp":100}`), 0644))
	require.NoError(t, os.WriteFile(specB, []byte(`{"chainId":970,"timestamp":200}`), 0644))

	testConfig(t, dir)
	viper.Set("chain.genesisFile", specA)

	n, err := NewNode(ctx, WithDefaultOptions())
	require.NoError(t, err)
	require.NoError(t, n.Stop())

	viper.Set("chain.genesisFile", specB)

	_, err = NewNode(ctx, WithDefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different chain")
}

func TestNodeSelfFinalizesAndReplays(t *testing.T) {
	dir := t.TempDir()
	testConfig(t, dir)
	viper.Set("chain.keyFile", filepath.Join(dir, "key.hex"))
	viper.Set("consensus.minWitnesses", 1)
	viper.Set("consensus.proposeInterval", 10*time.Millisecond)
	viper.Set("consensus.allowEmptyProposals", true)

	ctx, cancel := context.WithCancel(context.Background())

	n, err := NewNode(ctx, WithDefaultOptions())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- n.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		return n.Engine().FinalizedHeight() >= 2
	}, 15*time.Second, 20*time.Millisecond, "single proposer should finalize rounds")

	cancel()
	require.NoError(t, <-done)

	height := n.Engine().FinalizedHeight()
	require.NoError(t, n.Stop())

	// A fresh node over the same data dir replays to at least the same
	// height without proposing anything.
	ctx = context.Background()
	n2, err := NewNode(ctx, WithDefaultOptions())
	require.NoError(t, err)
	defer n2.Stop()

	assert.GreaterOrEqual(t, n2.Engine().FinalizedHeight(), height)
	assert.Equal(t, n.Engine().Author(), n2.Engine().Author())
}

func TestObserverHasNoAuthor(t *testing.T) {
	ctx := context.Background()
	testConfig(t, t.TempDir())

	n, err := NewNode(ctx, WithDefaultOptions())
	require.NoError(t, err)
	defer n.Stop()

	assert.True(t, n.Engine().Author().IsZero())
}
