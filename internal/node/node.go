package node

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/avatolabs/go-olympus/internal/config"
	"github.com/avatolabs/go-olympus/internal/storage"
	"github.com/avatolabs/go-olympus/pkg/consensus"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/genesis"
	"github.com/avatolabs/go-olympus/pkg/types"
)

// devGenesisTimestamp anchors the fallback chain used when no genesis
// spec is configured. Every unconfigured node derives the same genesis
// block from it.
const devGenesisTimestamp = 1661990400

type Node struct {
	cfg    *config.Config
	store  *storage.Store
	dag    *dag.Store
	engine *consensus.Engine
	pool   *consensus.TxMemPool

	logger *logrus.Logger
}

func (n *Node) Engine() *consensus.Engine {
	return n.engine
}

func (n *Node) DAG() *dag.Store {
	return n.dag
}

func (n *Node) Store() *storage.Store {
	return n.store
}

func (n *Node) Pool() *consensus.TxMemPool {
	return n.pool
}

func (n *Node) Config() *config.Config {
	return n.cfg
}

func NewNode(ctx context.Context, opts ...NodeOption) (*Node, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	n := &Node{cfg: cfg}

	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}

	if n.logger == nil {
		n.logger = logrus.StandardLogger()
	}

	if n.store == nil {
		s, err := storage.Open(filepath.Join(cfg.Chain().DataDir, "chain"))
		if err != nil {
			return nil, errors.Wrap(err, "opening chain store")
		}
		n.store = s
	}

	n.dag, err = dag.New(dag.WithPersistence(n.store))
	if err != nil {
		return nil, errors.Wrap(err, "initing dag")
	}

	n.pool = consensus.NewTxMemPool(cfg.Consensus().MempoolSize)

	engOpts, err := n.engineOptions()
	if err != nil {
		return nil, err
	}

	n.engine, err = consensus.NewEngine(n.dag, engOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "initing consensus engine")
	}

	if err := n.bootstrap(ctx); err != nil {
		return nil, errors.Wrap(err, "bootstrapping chain")
	}

	return n, nil
}

func (n *Node) engineOptions() ([]consensus.Option, error) {
	cc := n.cfg.Consensus()

	opts := []consensus.Option{
		consensus.WithChainID(cc.ChainID),
		consensus.WithBlockGasLimit(cc.BlockGasLimit),
		consensus.WithWitnessBounds(cc.MinWitnesses, cc.MaxWitnesses),
		consensus.WithStallRounds(cc.StallRounds),
		consensus.WithProposeInterval(cc.ProposeInterval),
		consensus.WithClockDrift(cc.ClockDrift),
		consensus.WithMaxPending(cc.MaxPendingBlocks),
		consensus.WithAllowEmptyProposals(cc.AllowEmpty),
		consensus.WithMemPool(n.pool),
		consensus.WithTxPersistence(n.store),
		consensus.WithBroadcaster(&logBroadcaster{l: n.logger}),
		consensus.WithExecutor(&watermarkExecutor{
			store: n.store,
			next:  &logExecutor{l: n.logger},
		}),
	}

	key, err := signingKey(n.cfg, n.logger)
	if err != nil {
		return nil, errors.Wrap(err, "loading signing key")
	}
	if key != nil {
		opts = append(opts, consensus.WithSigningKey(key))
	}

	return opts, nil
}

// bootstrap applies the genesis spec and replays any stored chain into
// the engine. A data dir whose first block does not match the spec is
// refused rather than silently mixed.
func (n *Node) bootstrap(ctx context.Context) error {
	spec := n.cfg.Chain().Genesis
	if spec == nil {
		spec = &genesis.Spec{
			ChainID:   n.cfg.Consensus().ChainID,
			Timestamp: devGenesisTimestamp,
		}
		n.logger.Warn("no genesis spec configured; using empty dev chain")
	}

	gBlock, gTxs, err := spec.Build()
	if err != nil {
		return errors.Wrap(err, "building genesis")
	}

	if h, ok, err := n.store.GenesisHash(); err != nil {
		return errors.Wrap(err, "reading stored genesis")
	} else if ok && h != gBlock.Hash() {
		return errors.Errorf("data dir holds a different chain (genesis %s)", h.Hex())
	}

	if err := n.engine.Bootstrap(ctx, gBlock, gTxs); err != nil {
		return errors.Wrap(err, "applying genesis")
	}

	gh := gBlock.Hash()
	var replayed int

	err = n.store.Replay(ctx, func(b *types.Block) error {
		if b.Hash() == gh {
			return nil
		}
		if err := n.engine.HandleBlock(ctx, b); err != nil {
			return errors.Wrapf(err, "replaying block %s", b.Hash())
		}
		replayed++
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "replaying chain")
	}

	if replayed > 0 {
		n.logger.WithFields(logrus.Fields{
			"blocks": replayed,
			"height": n.engine.FinalizedHeight(),
		}).Info("replayed chain")
	}

	return nil
}

// ListenAndServe drives the consensus engine until ctx ends.
func (n *Node) ListenAndServe(ctx context.Context) error {
	n.logger.WithFields(logrus.Fields{
		"author": n.engine.Author(),
		"height": n.engine.FinalizedHeight(),
	}).Info("starting consensus")

	return n.engine.Run(ctx)
}

func (n *Node) Stop() error {
	n.logger.Warn("Shutting down")

	return n.store.Close()
}
