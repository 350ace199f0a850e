package main

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/avatolabs/go-olympus/pkg/consensus"
	"github.com/avatolabs/go-olympus/pkg/cryptography"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/genesis"
	"github.com/avatolabs/go-olympus/pkg/types"
)

// An in-process cluster plan: several consensus engines wired through a
// loopback gossip hub stand in for a networked deployment. Proposals are
// driven in waves, one block per validator against the same frontier,
// the way batched gossip rounds land in practice. The plan passes once
// every node finalizes all injected transactions into a single agreed
// canonical order.

const (
	validators  = 4
	userTxs     = 12
	txsPerWave  = 3
	maxWaves    = 30
	planTimeout = time.Minute
)

// hub re-encodes every published message through the wire envelope and
// hands it to each engine. Transactions flood immediately; blocks are
// held back until the wave flushes, so every validator proposes against
// the same frontier.
type hub struct {
	mu     sync.Mutex
	nodes  []*consensus.Engine
	queued [][]byte
}

func (h *hub) join(e *consensus.Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nodes = append(h.nodes, e)
}

func (h *hub) publish(ctx context.Context, msg *consensus.Msg) error {
	raw, err := msg.Marshal()
	if err != nil {
		return err
	}

	if msg.Type == consensus.MsgTypeBlock {
		h.mu.Lock()
		h.queued = append(h.queued, raw)
		h.mu.Unlock()
		return nil
	}

	return h.deliver(ctx, raw)
}

func (h *hub) flush(ctx context.Context) error {
	h.mu.Lock()
	queued := h.queued
	h.queued = nil
	h.mu.Unlock()

	for _, raw := range queued {
		if err := h.deliver(ctx, raw); err != nil {
			return err
		}
	}

	return nil
}

func (h *hub) deliver(ctx context.Context, raw []byte) error {
	h.mu.Lock()
	nodes := append([]*consensus.Engine(nil), h.nodes...)
	h.mu.Unlock()

	for _, e := range nodes {
		if err := e.HandleMessage(ctx, raw); err != nil {
			logrus.WithError(err).Debug("peer rejected message")
		}
	}

	return nil
}

type hubBroadcaster struct {
	h *hub
}

func (b *hubBroadcaster) BroadcastBlock(ctx context.Context, blk *types.Block) error {
	return b.h.publish(ctx, &consensus.Msg{Type: consensus.MsgTypeBlock, Block: blk, Ts: time.Now().Unix()})
}

func (b *hubBroadcaster) BroadcastTx(ctx context.Context, tx *types.Transaction) error {
	return b.h.publish(ctx, &consensus.Msg{Type: consensus.MsgTypeTx, Tx: tx, Ts: time.Now().Unix()})
}

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("plan failed")
	}

	logrus.Info("plan passed")
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
	defer cancel()

	userKey, err := cryptography.GenerateKey()
	if err != nil {
		return err
	}
	userAddr := types.Address(cryptography.PubkeyToAddress(&userKey.PublicKey))

	spec := &genesis.Spec{
		ChainID:   consensus.DefaultChainID,
		Timestamp: time.Now().Unix(),
		Alloc:     map[string]string{userAddr.Hex(): "1000000000000000000"},
	}

	gossip := &hub{}
	engines := make([]*consensus.Engine, 0, validators)
	pools := make([]*consensus.TxMemPool, 0, validators)

	for i := 0; i < validators; i++ {
		key, err := cryptography.GenerateKey()
		if err != nil {
			return err
		}

		d, err := dag.New()
		if err != nil {
			return err
		}

		pool := consensus.NewTxMemPool(0)
		e, err := consensus.NewEngine(d,
			consensus.WithSigningKey(key),
			consensus.WithChainID(spec.ChainID),
			consensus.WithMemPool(pool),
			consensus.WithBroadcaster(&hubBroadcaster{h: gossip}),
			consensus.WithAllowEmptyProposals(true),
			consensus.WithWitnessBounds(3, validators),
		)
		if err != nil {
			return err
		}

		gBlock, gTxs, err := spec.Build()
		if err != nil {
			return err
		}
		if err := e.Bootstrap(ctx, gBlock, gTxs); err != nil {
			return err
		}

		gossip.join(e)
		engines = append(engines, e)
		pools = append(pools, pool)

		logrus.WithFields(logrus.Fields{"node": i, "author": e.Author().Hex()}).Info("node ready")
	}

	want := make(map[types.Hash]struct{}, userTxs)
	nonce := uint64(0)

	for wave := 1; wave <= maxWaves; wave++ {
		for i := 0; i < txsPerWave && nonce < userTxs; i++ {
			tx, err := transfer(nonce, userKey)
			if err != nil {
				return err
			}
			entry := engines[int(nonce)%len(engines)]
			if err := entry.SubmitTransaction(ctx, tx); err != nil {
				return errors.Wrapf(err, "submitting tx %d", nonce)
			}
			want[tx.Hash()] = struct{}{}
			nonce++
		}

		for i, e := range engines {
			if _, err := e.ProposeBlock(ctx, pools[i].Pending()); err != nil {
				return errors.Wrapf(err, "node %d proposing in wave %d", i, wave)
			}
		}
		if err := gossip.flush(ctx); err != nil {
			return err
		}

		if converged(engines, want) {
			return report(engines, wave)
		}
	}

	return errors.New("no convergence within the wave limit")
}

func transfer(nonce uint64, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(1),
		Gas:      consensus.TxGas,
		To:       types.Address{0x01},
		Value:    types.NewU256(1),
		ChainID:  consensus.DefaultChainID,
	}
	if err := tx.Sign(key); err != nil {
		return nil, errors.Wrapf(err, "signing tx %d", nonce)
	}

	return tx, nil
}

// converged reports whether every node has finalized every injected
// transaction.
func converged(engines []*consensus.Engine, want map[types.Hash]struct{}) bool {
	if len(want) < userTxs {
		return false
	}

	for _, e := range engines {
		finalized := make(map[types.Hash]struct{})
		for _, h := range e.FinalizedOrder() {
			finalized[h] = struct{}{}
		}

		for h := range want {
			if _, ok := finalized[h]; !ok {
				return false
			}
		}
	}

	return true
}

func report(engines []*consensus.Engine, waves int) error {
	orders := make([][]types.Hash, len(engines))
	for i, e := range engines {
		orders[i] = e.FinalizedOrder()
		logrus.WithFields(logrus.Fields{
			"node":   i,
			"height": e.FinalizedHeight(),
			"txs":    len(orders[i]),
			"waves":  waves,
		}).Info("node converged")
	}

	return ordersAgree(orders)
}

// ordersAgree checks that no node contradicts another: the shorter of
// any two canonical orders must be a prefix of the longer.
func ordersAgree(orders [][]types.Hash) error {
	for i := 1; i < len(orders); i++ {
		a, b := orders[i-1], orders[i]

		n := len(a)
		if len(b) < n {
			n = len(b)
		}

		for j := 0; j < n; j++ {
			if a[j] != b[j] {
				return errors.Errorf("nodes %d and %d disagree at position %d: %s vs %s",
					i-1, i, j, a[j].Hex(), b[j].Hex())
			}
		}
	}

	return nil
}
