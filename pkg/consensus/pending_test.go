package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/types"
)

func TestPendingPoolSatisfy(t *testing.T) {
	p := newPendingPool(8)

	b := &types.Block{Timestamp: 1}
	h := b.Hash()
	p1 := types.Hash{0x01}
	p2 := types.Hash{0x02}

	p.add(h, b, []types.Hash{p1, p2})
	assert.Equal(t, 1, p.len())

	// First parent arriving is not enough.
	assert.Empty(t, p.satisfy(p1))
	assert.Equal(t, 1, p.len())

	ready := p.satisfy(p2)
	require.Len(t, ready, 1)
	assert.Equal(t, h, ready[0].Hash())
	assert.Equal(t, 0, p.len())
}

func TestPendingPoolSharedDependency(t *testing.T) {
	p := newPendingPool(8)

	missing := types.Hash{0x09}

	b1 := &types.Block{Timestamp: 1}
	b2 := &types.Block{Timestamp: 2}

	p.add(b1.Hash(), b1, []types.Hash{missing})
	p.add(b2.Hash(), b2, []types.Hash{missing})

	ready := p.satisfy(missing)
	require.Len(t, ready, 2)

	// Arrival order is preserved.
	assert.Equal(t, b1.Hash(), ready[0].Hash())
	assert.Equal(t, b2.Hash(), ready[1].Hash())
}

func TestPendingPoolEvictsOldest(t *testing.T) {
	p := newPendingPool(2)

	b1 := &types.Block{Timestamp: 1}
	b2 := &types.Block{Timestamp: 2}
	b3 := &types.Block{Timestamp: 3}
	missing := types.Hash{0x07}

	p.add(b1.Hash(), b1, []types.Hash{missing})
	p.add(b2.Hash(), b2, []types.Hash{missing})
	p.add(b3.Hash(), b3, []types.Hash{missing})

	assert.Equal(t, 2, p.len())
	assert.False(t, p.has(b1.Hash()))
	assert.True(t, p.has(b2.Hash()))
	assert.True(t, p.has(b3.Hash()))

	ready := p.satisfy(missing)
	assert.Len(t, ready, 2)
}

func TestPendingPoolIgnoresUnknownSatisfy(t *testing.T) {
	p := newPendingPool(2)

	assert.Empty(t, p.satisfy(types.Hash{0xff}))
}
