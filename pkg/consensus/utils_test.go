package consensus

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatolabs/go-olympus/pkg/cryptography"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

// testEnv bundles an engine with the keys behind its validators and a
// bootstrapped genesis.
type testEnv struct {
	t       *testing.T
	dag     *dag.Store
	engine  *Engine
	keys    []*ecdsa.PrivateKey
	addrs   []types.Address
	genesis types.Hash
	ts      int64
}

func newTestEnv(t *testing.T, validators int, opts ...Option) *testEnv {
	t.Helper()

	d, err := dag.New()
	require.NoError(t, err)

	e, err := NewEngine(d, opts...)
	require.NoError(t, err)

	env := &testEnv{t: t, dag: d, engine: e, ts: 1}

	for i := 0; i < validators; i++ {
		pk, err := cryptography.GenerateKey()
		require.NoError(t, err)

		env.keys = append(env.keys, pk)
		env.addrs = append(env.addrs, types.Address(cryptography.PubkeyToAddress(&pk.PublicKey)))
	}

	g := &types.Block{Timestamp: env.ts}
	require.NoError(t, e.Bootstrap(context.Background(), g, nil))
	env.genesis = g.Hash()

	return env
}

// buildBlock signs a block from validator k. Timestamps tick per call
// so two blocks from the same author never collide on content.
func (env *testEnv) buildBlock(k int, parents, approvals []types.Hash, txs ...*types.Transaction) *types.Block {
	env.t.Helper()
	env.ts++

	hashes := make([]types.Hash, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash())
	}

	b := &types.Block{
		Author:    env.addrs[k],
		Parents:   parents,
		TxHashes:  hashes,
		Witnesses: approvals,
		Approvals: approvals,
		Timestamp: env.ts,
	}
	if tip, ok := env.dag.AuthorTip(env.addrs[k]); ok {
		b.Previous = tip
	}

	require.NoError(env.t, b.Sign(env.keys[k]))

	return b
}

// handle pushes a block through the full admission pipeline.
func (env *testEnv) handle(b *types.Block) {
	env.t.Helper()

	require.NoError(env.t, env.engine.HandleBlock(context.Background(), b))
}

// signedTx builds a plain transfer from validator k.
func (env *testEnv) signedTx(k int, nonce, gasPrice uint64) *types.Transaction {
	env.t.Helper()

	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(gasPrice),
		Gas:      TxGas,
		To:       types.Address{0xaa},
		Value:    types.NewU256(1),
		ChainID:  env.engine.chainID,
	}
	require.NoError(env.t, tx.Sign(env.keys[k]))

	return tx
}

// submitTx admits a transaction as if it arrived from the network.
func (env *testEnv) submitTx(tx *types.Transaction) {
	env.t.Helper()

	require.NoError(env.t, env.engine.HandleTransaction(context.Background(), tx))
}
