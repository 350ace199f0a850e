package consensus

import (
	"sync"

	"github.com/avatolabs/go-olympus/pkg/types"
)

type pendingBlock struct {
	block   *types.Block
	missing map[types.Hash]struct{}
}

// pendingPool parks blocks that arrived before their parents. Entries
// are bounded; once full the oldest parked block is evicted and must
// be re-gossiped to be considered again.
type pendingPool struct {
	mu      sync.Mutex
	blocks  map[types.Hash]*pendingBlock
	waiting map[types.Hash][]types.Hash
	order   []types.Hash
	max     int
}

func newPendingPool(max int) *pendingPool {
	if max < 1 {
		max = 1
	}

	return &pendingPool{
		blocks:  make(map[types.Hash]*pendingBlock),
		waiting: make(map[types.Hash][]types.Hash),
		max:     max,
	}
}

func (p *pendingPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.blocks)
}

func (p *pendingPool) has(h types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.blocks[h]
	return ok
}

// add parks a block until every hash in missing has been inserted.
// Re-parking a known block is a no-op.
func (p *pendingPool) add(h types.Hash, b *types.Block, missing []types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.blocks[h]; ok {
		return
	}

	for len(p.blocks) >= p.max {
		p.evictOldestLocked()
	}

	pb := &pendingBlock{block: b, missing: make(map[types.Hash]struct{}, len(missing))}
	for _, m := range missing {
		if _, ok := pb.missing[m]; ok {
			continue
		}
		pb.missing[m] = struct{}{}
		p.waiting[m] = append(p.waiting[m], h)
	}

	p.blocks[h] = pb
	p.order = append(p.order, h)
}

// satisfy marks parent as available and returns every parked block
// whose last missing parent it was, in arrival order.
func (p *pendingPool) satisfy(parent types.Hash) []*types.Block {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiters, ok := p.waiting[parent]
	if !ok {
		return nil
	}
	delete(p.waiting, parent)

	var ready []types.Hash
	for _, h := range waiters {
		pb, ok := p.blocks[h]
		if !ok {
			continue
		}
		delete(pb.missing, parent)
		if len(pb.missing) == 0 {
			ready = append(ready, h)
		}
	}

	out := make([]*types.Block, 0, len(ready))
	for _, h := range p.order {
		for _, r := range ready {
			if h == r {
				out = append(out, p.blocks[h].block)
				p.removeLocked(h)
				break
			}
		}
	}

	return out
}

func (p *pendingPool) evictOldestLocked() {
	if len(p.order) == 0 {
		return
	}

	h := p.order[0]
	p.removeLocked(h)
}

func (p *pendingPool) removeLocked(h types.Hash) {
	pb, ok := p.blocks[h]
	if !ok {
		return
	}

	for m := range pb.missing {
		ws := p.waiting[m]
		for i, w := range ws {
			if w == h {
				p.waiting[m] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		if len(p.waiting[m]) == 0 {
			delete(p.waiting, m)
		}
	}

	delete(p.blocks, h)
	for i, o := range p.order {
		if o == h {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}
