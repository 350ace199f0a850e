package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/types"
)

func TestWitnessSetFirstRound(t *testing.T) {
	env := newTestEnv(t, 3)

	a := env.buildBlock(0, []types.Hash{env.genesis}, nil)
	b := env.buildBlock(1, []types.Hash{env.genesis}, nil)
	c := env.buildBlock(2, []types.Hash{env.genesis}, nil)

	env.handle(a)
	env.handle(b)
	env.handle(c)

	ws, ok := env.engine.Witnesses(1)
	require.True(t, ok)

	want := []types.Hash{a.Hash(), b.Hash(), c.Hash()}
	types.SortHashes(want)

	assert.Equal(t, want, ws.Members)
	assert.True(t, ws.Complete)
	assert.Equal(t, Voting, env.engine.State(1))
}

func TestWitnessOnePerAuthorSmallestHash(t *testing.T) {
	env := newTestEnv(t, 2, WithWitnessBounds(1, 21))

	a1 := env.buildBlock(0, []types.Hash{env.genesis}, nil)
	a2 := env.buildBlock(0, []types.Hash{env.genesis}, nil)

	env.handle(a1)
	env.handle(a2)

	ws, ok := env.engine.Witnesses(1)
	require.True(t, ok)
	require.Len(t, ws.Members, 1)

	want := a1.Hash()
	if types.HashLess(a2.Hash(), want) {
		want = a2.Hash()
	}

	assert.Equal(t, want, ws.Members[0])
}

func TestWitnessCandidatesRequireRoundDepth(t *testing.T) {
	env := newTestEnv(t, 3)

	a := env.buildBlock(0, []types.Hash{env.genesis}, nil)
	b := env.buildBlock(1, []types.Hash{env.genesis}, nil)
	c := env.buildBlock(2, []types.Hash{env.genesis}, nil)

	env.handle(a)
	env.handle(b)
	env.handle(c)

	want, ok := env.engine.Witnesses(1)
	require.True(t, ok)

	// A deeper block from an existing author must not displace that
	// author's round one witness, whatever its hash.
	d := env.buildBlock(0, []types.Hash{a.Hash(), b.Hash(), c.Hash()}, nil)
	env.handle(d)

	got, ok := env.engine.Witnesses(1)
	require.True(t, ok)

	assert.Equal(t, want.Members, got.Members)
	assert.NotContains(t, got.Members, d.Hash())
}

func TestWitnessSelectionDeterministic(t *testing.T) {
	env := newTestEnv(t, 3)

	env.handle(env.buildBlock(0, []types.Hash{env.genesis}, nil))
	env.handle(env.buildBlock(1, []types.Hash{env.genesis}, nil))
	env.handle(env.buildBlock(2, []types.Hash{env.genesis}, nil))

	prev := []types.Hash{env.genesis}

	first := env.engine.selector.Select(1, prev, nil)
	second := env.engine.selector.Select(1, prev, nil)

	assert.Equal(t, first.Members, second.Members)
	assert.Equal(t, first.Complete, second.Complete)
}

func TestWitnessSetCapped(t *testing.T) {
	env := newTestEnv(t, 4, WithWitnessBounds(1, 2))

	for k := 0; k < 4; k++ {
		env.handle(env.buildBlock(k, []types.Hash{env.genesis}, nil))
	}

	ws, ok := env.engine.Witnesses(1)
	require.True(t, ok)

	assert.Len(t, ws.Members, 2)
	assert.True(t, ws.Complete)
	assert.True(t, types.HashLess(ws.Members[0], ws.Members[1]))
}

func TestWitnessSetIncompleteWithoutCoverage(t *testing.T) {
	env := newTestEnv(t, 4, WithWitnessBounds(1, 21))

	a := env.buildBlock(0, []types.Hash{env.genesis}, nil)
	b := env.buildBlock(1, []types.Hash{env.genesis}, nil)
	c := env.buildBlock(2, []types.Hash{env.genesis}, nil)

	env.handle(a)
	env.handle(b)
	env.handle(c)

	// e extends only a, leaving b and c uncovered at depth two.
	e := env.buildBlock(3, []types.Hash{a.Hash()}, nil)
	env.handle(e)

	prev := []types.Hash{a.Hash(), b.Hash(), c.Hash()}
	types.SortHashes(prev)

	ws := env.engine.selector.Select(2, prev, nil)

	assert.Equal(t, []types.Hash{e.Hash()}, ws.Members)
	assert.False(t, ws.Complete)
}

func TestWitnessReachesByDirectApproval(t *testing.T) {
	env := newTestEnv(t, 4, WithWitnessBounds(1, 21))

	a := env.buildBlock(0, []types.Hash{env.genesis}, nil)
	b := env.buildBlock(1, []types.Hash{env.genesis}, nil)
	env.handle(a)
	env.handle(b)

	// e descends from a but endorses b only by reference; the approval
	// alone must qualify it against b.
	e := env.buildBlock(2, []types.Hash{a.Hash()}, []types.Hash{b.Hash()})
	env.handle(e)

	cands := env.engine.selector.Candidates(2, []types.Hash{b.Hash()}, nil)
	require.Len(t, cands, 1)
	assert.Equal(t, e.Hash(), cands[0].Hash)
}
