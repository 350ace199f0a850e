package node

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/avatolabs/go-olympus/internal/storage"
	"github.com/avatolabs/go-olympus/pkg/consensus"
	"github.com/avatolabs/go-olympus/pkg/types"
)

var (
	_ consensus.Broadcaster = (*logBroadcaster)(nil)
	_ consensus.Executor    = (*watermarkExecutor)(nil)
	_ consensus.Executor    = (*logExecutor)(nil)
)

// logBroadcaster satisfies the engine's outbound hooks when no
// transport is attached.
type logBroadcaster struct {
	l *logrus.Logger
}

func (b *logBroadcaster) BroadcastBlock(ctx context.Context, blk *types.Block) error {
	b.l.WithField("block", blk.Hash()).Debug("no transport attached; block not relayed")
	return nil
}

func (b *logBroadcaster) BroadcastTx(ctx context.Context, tx *types.Transaction) error {
	b.l.WithField("tx", tx.Hash()).Debug("no transport attached; tx not relayed")
	return nil
}

// watermarkExecutor guards an inner executor with the durable executed
// round marker. The engine delivers slices at least once; the marker
// turns that into exactly once across restarts.
type watermarkExecutor struct {
	store *storage.Store
	next  consensus.Executor
}

func (e *watermarkExecutor) ExecuteSlice(ctx context.Context, res *consensus.ExecResult) error {
	last, ok, err := e.store.ExecutedRound()
	if err != nil {
		return errors.Wrap(err, "reading executed round")
	}
	if ok && res.Round <= last {
		return nil
	}

	if err := e.next.ExecuteSlice(ctx, res); err != nil {
		return err
	}

	return e.store.SetExecutedRound(res.Round)
}

// logExecutor reports finalized slices. State execution itself is
// delegated to an external engine.
type logExecutor struct {
	l *logrus.Logger
}

func (e *logExecutor) ExecuteSlice(ctx context.Context, res *consensus.ExecResult) error {
	e.l.WithFields(logrus.Fields{
		"round":  res.Round,
		"blocks": len(res.Blocks),
		"txs":    len(res.TxHashes),
	}).Info("finalized slice")

	return nil
}
