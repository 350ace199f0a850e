package storage

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/avatolabs/go-olympus/pkg/consensus"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

var (
	_ dag.Persistence         = (*Store)(nil)
	_ consensus.TxPersistence = (*Store)(nil)

	ErrNotFound = errors.New("not found")
)

const cacheSize = 1 << 20 * 100

type keyType byte

const (
	blockTPrefix keyType = iota + 1
	blockSeqTPrefix
	txTPrefix
	execRoundTPrefix
)

// Store is the durable side of the chain: block bodies, transaction
// bodies and the execution watermark, all in one pebble keyspace. Block
// writes also record an insertion sequence so Replay can stream blocks
// back in parent-before-child order.
type Store struct {
	db *pebble.DB

	mu  sync.Mutex
	seq uint64
}

func Open(path string) (*Store, error) {
	c := pebble.NewCache(cacheSize)
	tc := pebble.NewTableCache(c, 16, 100)
	defer tc.Unref()
	defer c.Unref()

	db, err := pebble.Open(path, &pebble.Options{Cache: c, TableCache: tc})
	if err != nil {
		return nil, errors.Wrap(err, "opening chain store")
	}

	s := &Store{db: db}

	if err := s.loadSeq(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "recovering block sequence")
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadSeq() error {
	iter := s.db.NewIter(prefixBounds(blockSeqTPrefix))
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		s.seq = binary.BigEndian.Uint64(iter.Key()[1:]) + 1
	}

	return iter.Error()
}

// PutBlock stores a block body and its insertion sequence entry in one
// synced batch. Re-puts of a known block are no-ops, so replaying the
// graph through the engine never duplicates sequence entries.
func (s *Store) PutBlock(ctx context.Context, b *types.Block) error {
	h := b.Hash()
	key := typedKey(blockTPrefix, h[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	_, done, err := s.db.Get(key)
	if err == nil {
		done.Close()
		return nil
	}
	if err != pebble.ErrNotFound {
		return errors.Wrap(err, "checking block")
	}

	d, err := b.Marshal()
	if err != nil {
		return err
	}

	seqKey := make([]byte, 9)
	seqKey[0] = byte(blockSeqTPrefix)
	binary.BigEndian.PutUint64(seqKey[1:], s.seq)

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(key, d, nil); err != nil {
		return errors.Wrap(err, "storing block")
	}
	if err := batch.Set(seqKey, h[:], nil); err != nil {
		return errors.Wrap(err, "storing block sequence")
	}

	if err := batch.Commit(&pebble.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "committing block")
	}

	s.seq++

	return nil
}

func (s *Store) GetBlock(ctx context.Context, h types.Hash) (*types.Block, error) {
	d, done, err := s.db.Get(typedKey(blockTPrefix, h[:]))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, errors.Wrap(ErrNotFound, h.Hex())
		}
		return nil, errors.Wrap(err, "getting block")
	}
	defer done.Close()

	b := &types.Block{}
	if err := b.Unmarshal(d); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Store) PutTransaction(ctx context.Context, t *types.Transaction) error {
	h := t.Hash()
	key := typedKey(txTPrefix, h[:])

	_, done, err := s.db.Get(key)
	if err == nil {
		done.Close()
		return nil
	}
	if err != pebble.ErrNotFound {
		return errors.Wrap(err, "checking tx")
	}

	d, err := t.Marshal()
	if err != nil {
		return err
	}

	if err := s.db.Set(key, d, nil); err != nil {
		return errors.Wrap(err, "storing tx")
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, h types.Hash) (*types.Transaction, error) {
	d, done, err := s.db.Get(typedKey(txTPrefix, h[:]))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, errors.Wrap(ErrNotFound, h.Hex())
		}
		return nil, errors.Wrap(err, "getting tx")
	}
	defer done.Close()

	t := &types.Transaction{}
	if err := t.Unmarshal(d); err != nil {
		return nil, err
	}

	return t, nil
}

// Replay streams every stored block in its original insertion order,
// which is always parent before child.
func (s *Store) Replay(ctx context.Context, fn func(*types.Block) error) error {
	iter := s.db.NewIter(prefixBounds(blockSeqTPrefix))
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var h types.Hash
		copy(h[:], iter.Value())

		b, err := s.GetBlock(ctx, h)
		if err != nil {
			return errors.Wrap(err, "loading block body")
		}

		if err := fn(b); err != nil {
			return err
		}
	}

	return iter.Error()
}

// GenesisHash returns the first stored block hash. The second return is
// false when the store is empty.
func (s *Store) GenesisHash() (types.Hash, bool, error) {
	iter := s.db.NewIter(prefixBounds(blockSeqTPrefix))
	defer iter.Close()

	var h types.Hash
	if !iter.First() || !iter.Valid() {
		return h, false, iter.Error()
	}

	copy(h[:], iter.Value())

	return h, true, nil
}

// ExecutedRound returns the highest round whose finalized slice has been
// handed to the executor. The second return is false when no round has
// executed yet.
func (s *Store) ExecutedRound() (uint64, bool, error) {
	d, done, err := s.db.Get(typedKey(execRoundTPrefix))
	if err != nil {
		if err == pebble.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "reading executed round")
	}
	defer done.Close()

	return binary.BigEndian.Uint64(d), true, nil
}

func (s *Store) SetExecutedRound(round uint64) error {
	d := make([]byte, 8)
	binary.BigEndian.PutUint64(d, round)

	if err := s.db.Set(typedKey(execRoundTPrefix), d, &pebble.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "storing executed round")
	}

	return nil
}

func typedKey(kType keyType, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}

	k := make([]byte, 0, n)
	k = append(k, byte(kType))
	for _, p := range parts {
		k = append(k, p...)
	}

	return k
}

func prefixBounds(kType keyType) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte{byte(kType)},
		UpperBound: []byte{byte(kType) + 1},
	}
}
