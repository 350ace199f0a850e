package consensus

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/avatolabs/go-olympus/pkg/types"
)

// MemPool holds admitted transactions until a proposal packs them or a
// finalized slice retires them.
type MemPool interface {
	AddTx(*types.Transaction) error
	GetTx() *types.Transaction
	Get(types.Hash) (*types.Transaction, bool)
	Pending() []*types.Transaction
	Remove([]types.Hash)
	Len() int
}

var (
	_ MemPool = (*TxMemPool)(nil)
)

type poolItem struct {
	tx   *types.Transaction
	hash types.Hash
	seq  uint64
}

// txHeap orders items by gas price, highest first; equal prices fall
// back to arrival order.
type txHeap []*poolItem

func (h txHeap) Len() int { return len(h) }

func (h txHeap) Less(i, j int) bool {
	if c := h[i].tx.GasPrice.Cmp(&h[j].tx.GasPrice.Int); c != 0 {
		return c > 0
	}

	return h[i].seq < h[j].seq
}

func (h txHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *txHeap) Push(x interface{}) {
	*h = append(*h, x.(*poolItem))
}

func (h *txHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

type TxMemPool struct {
	mu    sync.Mutex
	plist txHeap
	byes  map[types.Hash]*poolItem
	seq   uint64
	cap   int
}

// NewTxMemPool builds a pool bounded at cap transactions; cap <= 0
// means unbounded.
func NewTxMemPool(cap int) *TxMemPool {
	m := &TxMemPool{
		plist: make(txHeap, 0),
		byes:  make(map[types.Hash]*poolItem),
		cap:   cap,
	}

	heap.Init(&m.plist)

	return m
}

func (m *TxMemPool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.plist)
}

// AddTx admits a transaction. Re-adding a known hash is a no-op.
func (m *TxMemPool) AddTx(tx *types.Transaction) error {
	h := tx.Hash()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byes[h]; ok {
		return nil
	}
	if m.cap > 0 && len(m.plist) >= m.cap {
		return ErrPoolFull
	}

	it := &poolItem{tx: tx, hash: h, seq: m.seq}
	m.seq++
	m.byes[h] = it
	heap.Push(&m.plist, it)

	return nil
}

// GetTx pops the highest priced transaction, or nil when empty.
func (m *TxMemPool) GetTx() *types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.plist) == 0 {
		return nil
	}

	it := heap.Pop(&m.plist).(*poolItem)
	delete(m.byes, it.hash)

	return it.tx
}

// Get looks a pooled transaction up by hash without removing it.
func (m *TxMemPool) Get(h types.Hash) (*types.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.byes[h]
	if !ok {
		return nil, false
	}

	return it.tx, true
}

// Pending returns a snapshot of the pool in priority order, leaving
// the pool untouched. Proposers iterate this to pack a block.
func (m *TxMemPool) Pending() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]*poolItem, len(m.plist))
	copy(items, m.plist)

	sort.Slice(items, func(i, j int) bool {
		if c := items[i].tx.GasPrice.Cmp(&items[j].tx.GasPrice.Int); c != 0 {
			return c > 0
		}
		return items[i].seq < items[j].seq
	})

	out := make([]*types.Transaction, len(items))
	for i, it := range items {
		out[i] = it.tx
	}

	return out
}

// Remove drops the given hashes from the pool, typically after a slice
// finalizes them. Unknown hashes are ignored.
func (m *TxMemPool) Remove(hashes []types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[types.Hash]struct{}, len(hashes))
	for _, h := range hashes {
		if _, ok := m.byes[h]; ok {
			drop[h] = struct{}{}
			delete(m.byes, h)
		}
	}
	if len(drop) == 0 {
		return
	}

	kept := make(txHeap, 0, len(m.plist))
	for _, it := range m.plist {
		if _, ok := drop[it.hash]; !ok {
			kept = append(kept, it)
		}
	}
	m.plist = kept
	heap.Init(&m.plist)
}
