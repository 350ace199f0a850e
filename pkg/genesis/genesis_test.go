package genesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/consensus"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

const specJSON = `{
	"chainId": 970,
	"timestamp": 1662508800,
	"gasLimit": 50000000,
	"alloc": {
		"0xffffffffffffffffffffffffffffffffffffffff": "5",
		"0101010101010101010101010101010101010101": "1000000000000000000",
		"0x0202020202020202020202020202020202020202": "7"
	}
}`

func TestParseSpec(t *testing.T) {
	s, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	assert.Equal(t, uint64(970), s.ChainID)
	assert.Equal(t, int64(1662508800), s.Timestamp)
	assert.Equal(t, uint64(50000000), s.GasLimit)
	assert.Len(t, s.Alloc, 3)
}

func TestParseSpecRejectsBadInput(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `{`,
		"no chain id":    `{"timestamp": 1}`,
		"no timestamp":   `{"chainId": 970}`,
		"short address":  `{"chainId": 970, "timestamp": 1, "alloc": {"0xabcd": "1"}}`,
		"hex balance":    `{"chainId": 970, "timestamp": 1, "alloc": {"0101010101010101010101010101010101010101": "0xff"}}`,
		"signed balance": `{"chainId": 970, "timestamp": 1, "alloc": {"0101010101010101010101010101010101010101": "-1"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpec([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestAllocationsSorted(t *testing.T) {
	s, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	allocs, err := s.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 3)

	assert.Equal(t, byte(0x01), allocs[0].Address[0])
	assert.Equal(t, byte(0x02), allocs[1].Address[0])
	assert.Equal(t, byte(0xff), allocs[2].Address[0])
	assert.Equal(t, types.NewU256(1000000000000000000), allocs[0].Balance)
}

func TestMintDeterministic(t *testing.T) {
	a, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)
	b, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	ma, err := a.Mint()
	require.NoError(t, err)
	mb, err := b.Mint()
	require.NoError(t, err)

	assert.Equal(t, ma.Hash(), mb.Hash())
	assert.Equal(t, uint64(970), ma.ChainID)
	assert.Equal(t, types.NewU256(1000000000000000012), ma.Value)
}

func TestMintPayloadRoundTrip(t *testing.T) {
	s, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	mint, err := s.Mint()
	require.NoError(t, err)

	decoded, err := DecodeAllocations(mint.Payload)
	require.NoError(t, err)

	allocs, err := s.Allocations()
	require.NoError(t, err)
	assert.Equal(t, allocs, decoded)
}

func TestBuildGenesisBlock(t *testing.T) {
	s, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	block, txs, err := s.Build()
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.True(t, block.IsGenesis())
	assert.Equal(t, s.Timestamp, block.Timestamp)
	assert.Equal(t, []types.Hash{txs[0].Hash()}, block.TxHashes)

	again, _, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), again.Hash())
}

func TestBuildEmptyAlloc(t *testing.T) {
	s := &Spec{ChainID: 970, Timestamp: 1}

	block, txs, err := s.Build()
	require.NoError(t, err)

	assert.Empty(t, txs)
	assert.Empty(t, block.TxHashes)
	assert.True(t, block.IsGenesis())
}

func TestBuildBootstrapsEngine(t *testing.T) {
	ctx := context.Background()

	s, err := ParseSpec([]byte(specJSON))
	require.NoError(t, err)

	block, txs, err := s.Build()
	require.NoError(t, err)

	d, err := dag.New()
	require.NoError(t, err)

	eng, err := consensus.NewEngine(d, consensus.WithChainID(s.ChainID))
	require.NoError(t, err)
	require.NoError(t, eng.Bootstrap(ctx, block, txs))

	assert.Equal(t, uint64(0), eng.FinalizedHeight())
	assert.Equal(t, consensus.Finalized, eng.State(0))
	assert.Equal(t, []types.Hash{txs[0].Hash()}, eng.FinalizedOrder())
}
