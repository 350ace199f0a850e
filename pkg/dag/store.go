package dag

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/avatolabs/go-olympus/pkg/types"
)

const defaultAncestryCacheSize = 1 << 16

// Persistence receives accepted blocks for durable storage. A nil
// persistence keeps the graph memory only.
type Persistence interface {
	PutBlock(context.Context, *types.Block) error
}

// node is an arena entry. Edges are arena indices, never pointers, so
// the graph can be traversed without chasing heap references.
type node struct {
	block    *types.Block
	hash     types.Hash
	depth    uint64
	parents  []int32
	children []int32
}

// Entry is a read-only view of one stored block. Depth is the longest
// parent path back to genesis; genesis itself is depth zero.
type Entry struct {
	Hash  types.Hash
	Depth uint64
	Block *types.Block
}

type ancestryKey struct {
	anc, desc int32
}

// Store holds the block DAG. All blocks are owned by the store; callers
// must treat returned blocks as read only. Mutation is serialized
// through a single writer lock while reads proceed concurrently.
type Store struct {
	mu sync.RWMutex

	nodes []node
	index map[types.Hash]int32
	tips  map[int32]struct{}

	// latest block per author, advanced along Previous links
	authorTip map[types.Address]types.Hash

	ancestry *lru.Cache[ancestryKey, bool]

	persist Persistence
}

type Option func(*Store) error

func WithPersistence(p Persistence) Option {
	return func(s *Store) error {
		s.persist = p
		return nil
	}
}

func WithAncestryCacheSize(n int) Option {
	return func(s *Store) error {
		c, err := lru.New[ancestryKey, bool](n)
		if err != nil {
			return errors.Wrap(err, "sizing ancestry cache")
		}

		s.ancestry = c
		return nil
	}
}

func New(opts ...Option) (*Store, error) {
	s := &Store{
		index:     make(map[types.Hash]int32),
		tips:      make(map[int32]struct{}),
		authorTip: make(map[types.Address]types.Hash),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.ancestry == nil {
		c, err := lru.New[ancestryKey, bool](defaultAncestryCacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "sizing ancestry cache")
		}
		s.ancestry = c
	}

	return s, nil
}

// Insert links a block under its parents. It fails with UnknownParent
// when any parent is absent, DuplicateBlock when the hash is already
// present (the graph is left untouched) and Cyclic on self reference.
// The block is persisted before it becomes visible; a persistence
// failure leaves the graph unchanged.
func (s *Store) Insert(ctx context.Context, b *types.Block) error {
	h := b.Hash()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[h]; ok {
		return errors.Wrap(ErrDuplicateBlock, h.Hex())
	}

	if b.IsGenesis() {
		if len(s.nodes) != 0 {
			return errors.Wrap(ErrGenesisSet, h.Hex())
		}
	} else if len(s.nodes) == 0 {
		return errors.Wrapf(ErrUnknownParent, "no genesis for %s", h.Hex())
	}

	pidx := make([]int32, 0, len(b.Parents))
	seen := make(map[types.Hash]struct{}, len(b.Parents))
	for _, p := range b.Parents {
		if p == h {
			return errors.Wrap(ErrCyclic, h.Hex())
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		i, ok := s.index[p]
		if !ok {
			return errors.Wrapf(ErrUnknownParent, "%s missing parent %s", h.Hex(), p.Hex())
		}
		pidx = append(pidx, i)
	}

	if s.persist != nil {
		if err := s.persist.PutBlock(ctx, b); err != nil {
			return errors.Wrap(err, "persisting block")
		}
	}

	var depth uint64
	for _, p := range pidx {
		if d := s.nodes[p].depth + 1; d > depth {
			depth = d
		}
	}

	idx := int32(len(s.nodes))
	s.nodes = append(s.nodes, node{block: b, hash: h, depth: depth, parents: pidx})
	s.index[h] = idx

	for _, p := range pidx {
		s.nodes[p].children = append(s.nodes[p].children, idx)
		delete(s.tips, p)
	}
	s.tips[idx] = struct{}{}

	if b.Previous == s.authorTip[b.Author] {
		s.authorTip[b.Author] = h
	}

	return nil
}

func (s *Store) Get(h types.Hash) (*types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[h]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, h.Hex())
	}

	return s.nodes[i].block, nil
}

func (s *Store) Contains(h types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[h]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

func (s *Store) Genesis() (types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.nodes) == 0 {
		return types.ZeroHash, errors.Wrap(ErrNotFound, "empty dag")
	}

	return s.nodes[0].hash, nil
}

// ChildrenOf returns the known children of h in hash order.
func (s *Store) ChildrenOf(h types.Hash) ([]types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[h]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, h.Hex())
	}

	out := make([]types.Hash, 0, len(s.nodes[i].children))
	for _, c := range s.nodes[i].children {
		out = append(out, s.nodes[c].hash)
	}
	types.SortHashes(out)

	return out, nil
}

// Frontier returns the current tips in hash order: the candidate
// parents for a new proposal.
func (s *Store) Frontier() []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Hash, 0, len(s.tips))
	for i := range s.tips {
		out = append(out, s.nodes[i].hash)
	}
	types.SortHashes(out)

	return out
}

// IsAncestor reports whether a is a strict ancestor of b. Absent blocks
// are never ancestors.
func (s *Store) IsAncestor(a, b types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ai, ok := s.index[a]
	if !ok {
		return false
	}
	bi, ok := s.index[b]
	if !ok || ai == bi {
		return false
	}

	return s.isAncestorIdx(ai, bi)
}

// isAncestorIdx walks parent edges from desc. Parents always carry a
// smaller arena index than their children, which bounds the walk: any
// branch that drops below anc can be pruned.
func (s *Store) isAncestorIdx(anc, desc int32) bool {
	key := ancestryKey{anc, desc}
	if v, ok := s.ancestry.Get(key); ok {
		return v
	}

	found := false
	if anc < desc {
		visited := make(map[int32]struct{})
		queue := append([]int32(nil), s.nodes[desc].parents...)

		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]

			if i == anc {
				found = true
				break
			}
			if _, ok := visited[i]; ok {
				continue
			}
			visited[i] = struct{}{}

			if i > anc {
				queue = append(queue, s.nodes[i].parents...)
			}
		}
	}

	s.ancestry.Add(key, found)

	return found
}

// Depth returns the longest parent path from h back to genesis.
func (s *Store) Depth(h types.Hash) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[h]
	if !ok {
		return 0, errors.Wrap(ErrNotFound, h.Hex())
	}

	return s.nodes[i].depth, nil
}

// Entries returns a snapshot of every block in insertion order, which
// is always a parent-before-child topological order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.nodes))
	for i := range s.nodes {
		out = append(out, Entry{Hash: s.nodes[i].hash, Depth: s.nodes[i].depth, Block: s.nodes[i].block})
	}

	return out
}

// All returns every block hash in insertion order.
func (s *Store) All() []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Hash, 0, len(s.nodes))
	for i := range s.nodes {
		out = append(out, s.nodes[i].hash)
	}

	return out
}

// AuthorTip returns the latest block linked by an author's Previous
// chain, or false if the author has none.
func (s *Store) AuthorTip(a types.Address) (types.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.authorTip[a]
	return h, ok
}
