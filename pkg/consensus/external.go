package consensus

import (
	"context"

	"github.com/avatolabs/go-olympus/pkg/types"
)

// Broadcaster fans locally produced messages out to the rest of the
// network. The engine does not care how: gossip, direct streams and
// test fakes all satisfy it.
type Broadcaster interface {
	BroadcastBlock(context.Context, *types.Block) error
	BroadcastTx(context.Context, *types.Transaction) error
}

// ExecResult is one finalized slice handed to the execution layer:
// the round it closed, the blocks that reached quorum in canonical
// order and the deduplicated transactions they carried.
type ExecResult struct {
	Round    uint64
	Blocks   []types.Hash
	Txs      []*types.Transaction
	TxHashes []types.Hash
}

// Executor consumes finalized slices in round order. Delivery is
// at-least-once across restarts; executors that need exactly-once keep
// their own watermark.
type Executor interface {
	ExecuteSlice(context.Context, *ExecResult) error
}

// TxPersistence stores the transaction bodies referenced by accepted
// blocks, so the graph can be rebuilt in full after a restart. Bodies
// are written before the referencing block becomes visible.
type TxPersistence interface {
	PutTransaction(context.Context, *types.Transaction) error
	GetTransaction(context.Context, types.Hash) (*types.Transaction, error)
}
