package dag

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/types"
)

var nextTs int64

func testBlock(author byte, parents ...types.Hash) *types.Block {
	nextTs++
	return &types.Block{
		Author:    types.Address{author},
		Parents:   parents,
		Timestamp: nextTs,
	}
}

func mustInsert(t *testing.T, s *Store, b *types.Block) types.Hash {
	t.Helper()

	if err := s.Insert(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	return b.Hash()
}

func TestInsertGenesisOnce(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := testBlock(0)
	mustInsert(t, s, g)

	err = s.Insert(context.Background(), testBlock(1))
	assert.ErrorIs(t, err, ErrGenesisSet)

	got, err := s.Genesis()
	require.NoError(t, err)
	assert.Equal(t, g.Hash(), got)
}

func TestInsertUnknownParent(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	mustInsert(t, s, testBlock(0))

	orphan := testBlock(1, types.Hash{0xff})
	err = s.Insert(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrUnknownParent)
	assert.False(t, s.Contains(orphan.Hash()))
}

func TestInsertBeforeGenesis(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	err = s.Insert(context.Background(), testBlock(1, types.Hash{0x1}))
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestInsertDuplicateIdempotent(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := testBlock(0)
	mustInsert(t, s, g)

	a := testBlock(1, g.Hash())
	mustInsert(t, s, a)

	err = s.Insert(context.Background(), a)
	assert.ErrorIs(t, err, ErrDuplicateBlock)
	assert.Equal(t, 2, s.Len())
}

func TestInsertSelfReference(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	mustInsert(t, s, testBlock(0))

	// setting the parent list changes the content hash, so the claimed
	// self reference degrades to a parent that can never exist
	b := testBlock(1)
	b.Parents = []types.Hash{b.Hash()}

	err = s.Insert(context.Background(), b)
	assert.Error(t, err)
	assert.False(t, s.Contains(b.Hash()))
}

func TestChildrenAndFrontier(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))
	a := mustInsert(t, s, testBlock(1, g))
	b := mustInsert(t, s, testBlock(2, g))

	children, err := s.ChildrenOf(g)
	require.NoError(t, err)

	want := []types.Hash{a, b}
	types.SortHashes(want)
	assert.Equal(t, want, children)
	assert.Equal(t, want, s.Frontier())

	// a child of both tips collapses the frontier
	c := mustInsert(t, s, testBlock(3, a, b))
	assert.Equal(t, []types.Hash{c}, s.Frontier())
}

func TestIsAncestor(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))
	a := mustInsert(t, s, testBlock(1, g))
	b := mustInsert(t, s, testBlock(2, g))
	c := mustInsert(t, s, testBlock(3, a, b))

	assert.True(t, s.IsAncestor(g, a))
	assert.True(t, s.IsAncestor(g, c))
	assert.True(t, s.IsAncestor(a, c))
	assert.True(t, s.IsAncestor(b, c))

	assert.False(t, s.IsAncestor(a, a))
	assert.False(t, s.IsAncestor(c, a))
	assert.False(t, s.IsAncestor(a, b))
	assert.False(t, s.IsAncestor(types.Hash{0xff}, a))

	// cached second pass agrees
	assert.True(t, s.IsAncestor(g, c))
	assert.False(t, s.IsAncestor(c, a))
}

func TestNoOrphans(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))
	a := mustInsert(t, s, testBlock(1, g))
	mustInsert(t, s, testBlock(2, g, a))

	for _, h := range s.All() {
		b, err := s.Get(h)
		require.NoError(t, err)
		for _, p := range b.Parents {
			assert.True(t, s.Contains(p))
		}
	}
}

func TestEntriesTopological(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))
	a := mustInsert(t, s, testBlock(1, g))
	mustInsert(t, s, testBlock(2, g, a))

	seen := map[types.Hash]struct{}{}
	for _, e := range s.Entries() {
		for _, p := range e.Block.Parents {
			_, ok := seen[p]
			assert.True(t, ok, "parent listed after child")
		}
		seen[e.Hash] = struct{}{}
	}
}

func TestDepth(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))
	a := mustInsert(t, s, testBlock(1, g))
	b := mustInsert(t, s, testBlock(2, g))
	c := mustInsert(t, s, testBlock(3, a, b))
	d := mustInsert(t, s, testBlock(4, c, g))

	for h, want := range map[types.Hash]uint64{g: 0, a: 1, b: 1, c: 2, d: 3} {
		got, err := s.Depth(h)
		require.NoError(t, err)
		assert.Equal(t, want, got, h.Hex())
	}

	_, err = s.Depth(types.Hash{0xff})
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingPersistence struct {
	fail bool
	put  int
}

func (f *failingPersistence) PutBlock(_ context.Context, _ *types.Block) error {
	if f.fail {
		return errors.New("disk full")
	}
	f.put++
	return nil
}

func TestPersistenceAtomicity(t *testing.T) {
	p := &failingPersistence{}
	s, err := New(WithPersistence(p))
	require.NoError(t, err)

	g := testBlock(0)
	mustInsert(t, s, g)
	assert.Equal(t, 1, p.put)

	p.fail = true
	a := testBlock(1, g.Hash())
	err = s.Insert(context.Background(), a)
	assert.Error(t, err)
	assert.False(t, s.Contains(a.Hash()))
	assert.Equal(t, 1, s.Len())

	p.fail = false
	mustInsert(t, s, a)
	assert.Equal(t, 2, p.put)
}

func TestAuthorTip(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	g := mustInsert(t, s, testBlock(0))

	first := testBlock(1, g)
	mustInsert(t, s, first)

	tip, ok := s.AuthorTip(types.Address{1})
	require.True(t, ok)
	assert.Equal(t, first.Hash(), tip)

	second := testBlock(1, first.Hash())
	second.Previous = first.Hash()
	mustInsert(t, s, second)

	tip, ok = s.AuthorTip(types.Address{1})
	require.True(t, ok)
	assert.Equal(t, second.Hash(), tip)
}
