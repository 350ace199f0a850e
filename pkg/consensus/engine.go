package consensus

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/avatolabs/go-olympus/internal/utils/logging"
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

const (
	txBloomEstimate      = 1 << 20
	txBloomFalsePositive = 0.01
)

// Engine orchestrates consensus over a block DAG: it admits incoming
// blocks and transactions, selects witnesses round by round, tallies
// approvals, fixes the canonical transaction order one finalized round
// at a time and proposes new blocks extending the frontier.
//
// All consensus state mutation is serialized through a single lock;
// the DAG itself may be read concurrently.
type Engine struct {
	mu sync.Mutex

	dag       *dag.Store
	selector  *WitnessSelector
	approvals *ApprovalEngine
	validator *TxValidator
	memPool   MemPool
	pending   *pendingPool

	broadcaster Broadcaster
	executor    Executor
	txStore     TxPersistence

	signingKey *ecdsa.PrivateKey
	author     types.Address

	chainID         uint64
	blockGasLimit   uint64
	proposeInterval time.Duration
	allowEmpty      bool
	stallRounds     int
	quorumNum       uint64
	quorumDen       uint64
	minWitnesses    int
	maxWitnesses    int
	clockDrift      time.Duration
	maxPending      int

	// rounds holds finalized rounds only; the live target round is
	// recomputed from the DAG after every insertion.
	rounds         map[uint64]*Round
	witnessOf      map[types.Hash]uint64
	finalizedRound uint64
	bootstrapped   bool
	targetState    RoundState
	targetSet      *WitnessSet

	finalizedTx    *bloom.BloomFilter
	finalizedTxSet map[types.Hash]struct{}
	order          []types.Hash

	execQueue  []*ExecResult
	execSignal chan struct{}
}

func NewEngine(d *dag.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		dag:             d,
		chainID:         DefaultChainID,
		blockGasLimit:   DefaultBlockGasLimit,
		proposeInterval: DefaultProposeInterval,
		stallRounds:     DefaultStallRounds,
		quorumNum:       2,
		quorumDen:       3,
		minWitnesses:    DefaultMinWitnesses,
		maxWitnesses:    DefaultMaxWitnesses,
		clockDrift:      DefaultClockDrift,
		maxPending:      DefaultMaxPending,
		rounds:          make(map[uint64]*Round),
		witnessOf:       make(map[types.Hash]uint64),
		targetState:     Collecting,
		finalizedTx:     bloom.NewWithEstimates(txBloomEstimate, txBloomFalsePositive),
		finalizedTxSet:  make(map[types.Hash]struct{}),
		execSignal:      make(chan struct{}, 1),
	}

	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, errors.Wrap(err, "applying engine option")
		}
	}

	if e.memPool == nil {
		e.memPool = NewTxMemPool(0)
	}

	e.pending = newPendingPool(e.maxPending)
	e.selector = NewWitnessSelector(d, e.minWitnesses, e.maxWitnesses)
	e.approvals = NewApprovalEngine(d, e.quorumNum, e.quorumDen)
	e.validator = NewTxValidator(e.chainID)

	return e, nil
}

// Bootstrap seeds an empty DAG with the genesis block and dispatches
// its allocation transactions as the round zero slice. Replaying the
// same genesis after a restart yields the same state.
func (e *Engine) Bootstrap(ctx context.Context, genesis *types.Block, txs []*types.Transaction) error {
	if !genesis.IsGenesis() {
		return errors.Wrap(ErrInvalidBlock, "genesis cannot have parents")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dag.Insert(ctx, genesis); err != nil {
		return errors.Wrap(err, "inserting genesis")
	}

	gh := genesis.Hash()
	res := &ExecResult{Round: 0, Blocks: []types.Hash{gh}}

	for _, tx := range txs {
		h := tx.Hash()
		if e.isFinalizedTxLocked(h) {
			continue
		}
		if e.txStore != nil {
			if err := e.txStore.PutTransaction(ctx, tx); err != nil {
				return errors.Wrap(err, "persisting genesis tx")
			}
		}
		e.markFinalizedTxLocked(h)
		e.order = append(e.order, h)
		res.Txs = append(res.Txs, tx)
		res.TxHashes = append(res.TxHashes, h)
	}

	e.rounds[0] = &Round{
		Number:    0,
		Witnesses: &WitnessSet{Round: 0, Members: []types.Hash{gh}, Complete: true},
		State:     Finalized,
	}
	e.finalizedRound = 0
	e.bootstrapped = true
	e.targetState = Collecting

	e.enqueueSliceLocked(res)
	blockCount.Set(float64(e.dag.Len()))

	logging.Entry().
		WithField("genesis", gh.Hex()).
		WithField("txs", len(res.TxHashes)).
		Info("bootstrapped from genesis")

	return nil
}

// HandleTransaction admits a transaction arriving from the network.
// Stale nonces, wrong chains, underfunded gas and bad signatures are
// rejected; transactions already finalized are dropped silently.
func (e *Engine) HandleTransaction(ctx context.Context, tx *types.Transaction) error {
	h := tx.Hash()

	e.mu.Lock()
	finalized := e.isFinalizedTxLocked(h)
	e.mu.Unlock()
	if finalized {
		return nil
	}

	if _, err := e.validator.Validate(tx); err != nil {
		rejectedTxCount.Inc()
		return err
	}

	if err := e.memPool.AddTx(tx); err != nil {
		return errors.Wrap(err, "pooling tx")
	}
	mempoolSize.Set(float64(e.memPool.Len()))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked(ctx, h)

	return nil
}

// SubmitTransaction validates and pools a locally submitted
// transaction, then hands it to the network layer.
func (e *Engine) SubmitTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := e.HandleTransaction(ctx, tx); err != nil {
		return err
	}

	if e.broadcaster != nil {
		if err := e.broadcaster.BroadcastTx(ctx, tx); err != nil {
			return errors.Wrap(err, "broadcasting tx")
		}
	}

	return nil
}

// HandleBlock runs the admission pipeline on a block arriving from the
// network: structural and signature checks, parking while referenced
// blocks or transaction bodies are still in flight, atomic DAG
// insertion and a finalization pass. Duplicate deliveries are benign.
func (e *Engine) HandleBlock(ctx context.Context, b *types.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handleBlockLocked(ctx, b)
}

// HandleMessage decodes a wire envelope and routes it to the block or
// transaction pipeline.
func (e *Engine) HandleMessage(ctx context.Context, raw []byte) error {
	msg := &Msg{}
	if err := msg.Unmarshal(raw); err != nil {
		return err
	}

	switch msg.Type {
	case MsgTypeTx:
		return e.HandleTransaction(ctx, msg.Tx)
	case MsgTypeBlock:
		return e.HandleBlock(ctx, msg.Block)
	default:
		return errors.Wrapf(ErrUnknownMsg, "type %d", msg.Type)
	}
}

// ValidateTransaction checks a transaction without admitting it.
func (e *Engine) ValidateTransaction(tx *types.Transaction) error {
	_, err := e.validator.Validate(tx)
	return err
}

// ValidateBlock checks a block without inserting it: structure, author
// signature, reference resolution and the independent validity of
// every listed transaction.
func (e *Engine) ValidateBlock(ctx context.Context, b *types.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkBlockLocked(b); err != nil {
		return err
	}

	blocks, txs := e.missingRefsLocked(ctx, b)
	if len(blocks) > 0 {
		return errors.Wrapf(dag.ErrUnknownParent, "%d unresolved block references", len(blocks))
	}
	if len(txs) > 0 {
		return errors.Wrapf(ErrUnknownTx, "%d unresolved transactions", len(txs))
	}

	if err := e.checkLineageLocked(b); err != nil {
		return err
	}

	return e.checkBlockTxsLocked(ctx, b)
}

func (e *Engine) handleBlockLocked(ctx context.Context, b *types.Block) error {
	h := b.Hash()

	if e.dag.Contains(h) {
		return nil
	}

	if err := e.checkBlockLocked(b); err != nil {
		return err
	}

	blocks, txs := e.missingRefsLocked(ctx, b)
	if missing := append(blocks, txs...); len(missing) > 0 {
		e.pending.add(h, b, missing)
		pendingBlocks.Set(float64(e.pending.len()))
		logging.Entry().
			WithField("block", h.Hex()).
			WithField("missing", len(missing)).
			Debug("parking block until references resolve")
		return nil
	}

	if err := e.checkLineageLocked(b); err != nil {
		return err
	}
	if err := e.checkBlockTxsLocked(ctx, b); err != nil {
		return err
	}
	if err := e.persistBlockTxsLocked(ctx, b); err != nil {
		return err
	}

	if err := e.dag.Insert(ctx, b); err != nil {
		if errors.Is(err, dag.ErrDuplicateBlock) {
			return nil
		}
		return errors.Wrap(err, "inserting block")
	}
	blockCount.Set(float64(e.dag.Len()))

	e.releaseLocked(ctx, h)
	e.advanceLocked(ctx)

	return nil
}

// checkBlockLocked covers everything knowable from the block alone.
func (e *Engine) checkBlockLocked(b *types.Block) error {
	if b.IsGenesis() {
		return errors.Wrap(ErrInvalidBlock, "unexpected genesis block")
	}
	if b.Timestamp > time.Now().Add(e.clockDrift).Unix() {
		return errors.Wrap(ErrInvalidBlock, "timestamp too far in the future")
	}
	if b.GasUsed > e.blockGasLimit {
		return errors.Wrap(ErrInvalidBlock, "block gas limit exceeded")
	}

	ok, err := b.VerifySignature()
	if err != nil {
		return errors.Wrap(ErrBadSignature, err.Error())
	}
	if !ok {
		return errors.Wrap(ErrBadSignature, "author mismatch")
	}

	return nil
}

// checkLineageLocked verifies the author chain: a non zero Previous
// must name a resolved block signed by the same author.
func (e *Engine) checkLineageLocked(b *types.Block) error {
	if b.Previous.IsZero() {
		return nil
	}

	prev, err := e.dag.Get(b.Previous)
	if err != nil {
		return errors.Wrap(err, "resolving previous block")
	}
	if prev.Author != b.Author {
		return errors.Wrap(ErrInvalidBlock, "previous block by different author")
	}

	return nil
}

// persistBlockTxsLocked makes every transaction the block lists durable
// before the block itself becomes visible, so a restart can always
// rebuild the full graph from storage.
func (e *Engine) persistBlockTxsLocked(ctx context.Context, b *types.Block) error {
	if e.txStore == nil {
		return nil
	}

	for _, th := range b.TxHashes {
		if e.isFinalizedTxLocked(th) {
			continue
		}

		tx, err := e.resolveTxLocked(ctx, th)
		if err != nil {
			return err
		}
		if err := e.txStore.PutTransaction(ctx, tx); err != nil {
			return errors.Wrapf(err, "persisting tx %s", th.Hex())
		}
	}

	return nil
}

// missingRefsLocked collects the block references (parents, witnesses,
// approvals) and transaction hashes this node cannot resolve yet.
func (e *Engine) missingRefsLocked(ctx context.Context, b *types.Block) (blocks, txs []types.Hash) {
	seen := make(map[types.Hash]struct{})

	wantBlock := func(h types.Hash) {
		if _, ok := seen[h]; ok {
			return
		}
		if e.dag.Contains(h) {
			return
		}
		seen[h] = struct{}{}
		blocks = append(blocks, h)
	}

	if !b.Previous.IsZero() {
		wantBlock(b.Previous)
	}
	for _, p := range b.Parents {
		wantBlock(p)
	}
	for _, w := range b.Witnesses {
		wantBlock(w)
	}
	for _, ap := range b.Approvals {
		wantBlock(ap)
	}

	for _, th := range b.TxHashes {
		if _, ok := seen[th]; ok {
			continue
		}
		if e.isFinalizedTxLocked(th) {
			continue
		}
		if _, ok := e.memPool.Get(th); ok {
			continue
		}
		if e.txStore != nil {
			if _, err := e.txStore.GetTransaction(ctx, th); err == nil {
				continue
			}
		}
		seen[th] = struct{}{}
		txs = append(txs, th)
	}

	return blocks, txs
}

// checkBlockTxsLocked validates every resolvable transaction the block
// lists. Transactions finalized by an earlier round were validated
// then and are skipped.
func (e *Engine) checkBlockTxsLocked(ctx context.Context, b *types.Block) error {
	var gas uint64

	for _, th := range b.TxHashes {
		if e.isFinalizedTxLocked(th) {
			continue
		}

		tx, err := e.resolveTxLocked(ctx, th)
		if err != nil {
			return err
		}
		if _, err := e.validator.ValidateStateless(tx); err != nil {
			return errors.Wrapf(err, "tx %s", th.Hex())
		}

		gas += tx.Gas
	}

	if gas > e.blockGasLimit {
		return errors.Wrap(ErrInvalidBlock, "transactions exceed block gas limit")
	}

	return nil
}

func (e *Engine) resolveTxLocked(ctx context.Context, h types.Hash) (*types.Transaction, error) {
	if tx, ok := e.memPool.Get(h); ok {
		return tx, nil
	}
	if e.txStore != nil {
		if tx, err := e.txStore.GetTransaction(ctx, h); err == nil {
			return tx, nil
		}
	}

	return nil, errors.Wrap(ErrUnknownTx, h.Hex())
}

// releaseLocked replays parked blocks whose last missing reference was
// just satisfied. A parked block that fails on replay is dropped with
// a log line; it never poisons the admission path.
func (e *Engine) releaseLocked(ctx context.Context, h types.Hash) {
	for _, b := range e.pending.satisfy(h) {
		if err := e.handleBlockLocked(ctx, b); err != nil {
			logging.WithError(err).Error("replaying parked block")
		}
	}
	pendingBlocks.Set(float64(e.pending.len()))
}

// advanceLocked recomputes the target round from the current DAG and
// finalizes as many consecutive rounds as reach quorum. Finalization
// is strictly sequential: round R+1 cannot close before round R.
func (e *Engine) advanceLocked(ctx context.Context) {
	if !e.bootstrapped {
		return
	}

	for {
		target := e.finalizedRound + 1
		prev := e.witnessMembersLocked(target - 1)

		ws := e.selector.Select(target, prev, e.takenLocked())
		e.targetSet = ws

		if !ws.Complete {
			e.setTargetStateLocked(target, ws, Collecting)
			return
		}

		tally := e.approvals.Tally(target, ws.Members)
		if !tally.Finalized {
			e.setTargetStateLocked(target, ws, Voting)
			return
		}

		e.finalizeRoundLocked(ctx, target, ws, tally)
	}
}

// setTargetStateLocked applies the stall rule. Stalled is sticky: once
// entered, the round reports stalled until it finalizes, even while
// votes keep accumulating underneath.
func (e *Engine) setTargetStateLocked(target uint64, ws *WitnessSet, fallback RoundState) {
	if e.targetState == Stalled {
		return
	}

	if e.formedAheadLocked(target, ws) >= e.stallRounds {
		e.targetState = Stalled
		stallCount.Inc()
		logging.Entry().
			WithField("round", target).
			WithField("state", e.targetState.String()).
			Warn("round stalled awaiting quorum")
		return
	}

	e.targetState = fallback
}

// formedAheadLocked counts how many complete witness sets have formed
// beyond an unfinalized target round.
func (e *Engine) formedAheadLocked(target uint64, ws *WitnessSet) int {
	prev := ws.Members
	taken := e.takenLocked()
	for _, m := range ws.Members {
		taken[m] = struct{}{}
	}

	formed := 0
	for r := target + 1; len(prev) > 0; r++ {
		next := e.selector.Select(r, prev, taken)
		if !next.Complete {
			break
		}
		formed++
		for _, m := range next.Members {
			taken[m] = struct{}{}
		}
		prev = next.Members
	}

	return formed
}

// finalizeRoundLocked fixes the round's slice of canonical order: the
// quorum approved blocks in hash order, their transactions in author
// listed order, minus hashes already finalized by earlier rounds.
func (e *Engine) finalizeRoundLocked(ctx context.Context, target uint64, ws *WitnessSet, tally *TallyResult) {
	res := &ExecResult{Round: target, Blocks: tally.Approved}

	for _, bh := range tally.Approved {
		blk, err := e.dag.Get(bh)
		if err != nil {
			logging.WithError(err).Error("loading approved block")
			continue
		}

		for _, th := range blk.TxHashes {
			if e.isFinalizedTxLocked(th) {
				continue
			}

			tx, err := e.resolveTxLocked(ctx, th)
			if err != nil {
				logging.WithError(err).WithField("tx", th.Hex()).Error("resolving finalized tx")
				continue
			}

			e.markFinalizedTxLocked(th)
			e.order = append(e.order, th)
			res.Txs = append(res.Txs, tx)
			res.TxHashes = append(res.TxHashes, th)

			if from, err := tx.Sender(); err == nil {
				e.validator.Observe(from, tx.Nonce)
			}
		}
	}

	e.rounds[target] = &Round{Number: target, Witnesses: ws, State: Finalized}
	for _, m := range ws.Members {
		e.witnessOf[m] = target
	}
	e.finalizedRound = target
	e.targetState = Collecting
	e.targetSet = nil

	e.memPool.Remove(res.TxHashes)
	mempoolSize.Set(float64(e.memPool.Len()))
	finalizedRound.Set(float64(target))
	finalizedTxCount.Add(float64(len(res.TxHashes)))

	e.enqueueSliceLocked(res)

	logging.Entry().
		WithField("round", target).
		WithField("blocks", len(res.Blocks)).
		WithField("txs", len(res.TxHashes)).
		Info("round finalized")
}

func (e *Engine) witnessMembersLocked(r uint64) []types.Hash {
	if round, ok := e.rounds[r]; ok {
		return round.Witnesses.Members
	}

	return nil
}

func (e *Engine) takenLocked() map[types.Hash]struct{} {
	taken := make(map[types.Hash]struct{}, len(e.witnessOf))
	for h := range e.witnessOf {
		taken[h] = struct{}{}
	}

	return taken
}

func (e *Engine) isFinalizedTxLocked(h types.Hash) bool {
	if !e.finalizedTx.Test(h[:]) {
		return false
	}

	_, ok := e.finalizedTxSet[h]
	return ok
}

func (e *Engine) markFinalizedTxLocked(h types.Hash) {
	e.finalizedTx.Add(h[:])
	e.finalizedTxSet[h] = struct{}{}
}

func (e *Engine) enqueueSliceLocked(res *ExecResult) {
	e.execQueue = append(e.execQueue, res)

	select {
	case e.execSignal <- struct{}{}:
	default:
	}
}

type proposal struct {
	block    *types.Block
	frontier []types.Hash
	txs      []*types.Transaction
}

// ProposeBlock assembles, signs and inserts a new block extending the
// current frontier. The given transactions are filtered through the
// validator and packed in strict per sender nonce order; whatever does
// not fit or sequence stays behind for a later proposal. Returns
// ErrSuperseded when another block moves the frontier between assembly
// and signing, and ErrEmptyProposal when nothing survives filtering
// and policy forbids empty blocks.
func (e *Engine) ProposeBlock(ctx context.Context, txs []*types.Transaction) (*types.Block, error) {
	if e.signingKey == nil {
		return nil, errors.New("engine has no signing key")
	}

	e.mu.Lock()
	prop, err := e.assembleLocked(txs)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Signing happens outside the lock; the frontier may move
	// underneath us and is re-checked at commit.
	if err := prop.block.Sign(e.signingKey); err != nil {
		return nil, errors.Wrap(err, "signing proposal")
	}

	e.mu.Lock()
	err = e.commitLocked(ctx, prop)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	proposalCount.Inc()

	if e.broadcaster != nil {
		if err := e.broadcaster.BroadcastBlock(ctx, prop.block); err != nil {
			logging.WithError(err).Error("broadcasting block")
		}
	}

	return prop.block, nil
}

func (e *Engine) assembleLocked(txs []*types.Transaction) (*proposal, error) {
	if !e.bootstrapped {
		return nil, errors.New("engine not bootstrapped")
	}

	frontier := e.dag.Frontier()
	if len(frontier) == 0 {
		return nil, errors.New("empty frontier")
	}

	staged := make(map[types.Address]uint64)

	var (
		hashes []types.Hash
		kept   []*types.Transaction
		gas    uint64
	)

	for _, tx := range txs {
		from, err := e.validator.Validate(tx)
		if err != nil {
			continue
		}

		next, ok := staged[from]
		if !ok {
			next = e.validator.NextNonce(from)
		}
		if tx.Nonce != next {
			continue
		}
		if gas+tx.Gas > e.blockGasLimit {
			continue
		}

		h := tx.Hash()
		if e.isFinalizedTxLocked(h) {
			continue
		}

		staged[from] = next + 1
		gas += tx.Gas
		hashes = append(hashes, h)
		kept = append(kept, tx)
	}

	if len(hashes) == 0 && !e.allowEmpty {
		return nil, ErrEmptyProposal
	}

	var witnesses []types.Hash
	if e.targetSet != nil {
		witnesses = append(witnesses, e.targetSet.Members...)
	}

	var previous types.Hash
	if tip, ok := e.dag.AuthorTip(e.author); ok {
		previous = tip
	}

	b := &types.Block{
		Author:    e.author,
		Previous:  previous,
		Parents:   frontier,
		TxHashes:  hashes,
		Witnesses: witnesses,
		Approvals: witnesses,
		Timestamp: time.Now().Unix(),
		GasUsed:   gas,
	}

	return &proposal{block: b, frontier: frontier, txs: kept}, nil
}

func (e *Engine) commitLocked(ctx context.Context, prop *proposal) error {
	if !sameFrontier(e.dag.Frontier(), prop.frontier) {
		supersededCount.Inc()
		return ErrSuperseded
	}

	for _, tx := range prop.txs {
		if err := e.memPool.AddTx(tx); err != nil {
			return errors.Wrap(err, "pooling proposal tx")
		}
	}
	if err := e.persistBlockTxsLocked(ctx, prop.block); err != nil {
		return err
	}

	if err := e.dag.Insert(ctx, prop.block); err != nil {
		return errors.Wrap(err, "inserting proposal")
	}
	blockCount.Set(float64(e.dag.Len()))

	e.advanceLocked(ctx)

	return nil
}

// Run drives the engine until the context ends. One goroutine hands
// finalized slices to the executor in round order; when a signing key
// is configured another proposes blocks on an interval, backing off
// while the network is quiet.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.dispatchSlices(ctx)
	}()

	if e.signingKey != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.proposeLoop(ctx)
		}()
	}

	wg.Wait()

	return nil
}

func (e *Engine) dispatchSlices(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.execSignal:
		}

		for {
			e.mu.Lock()
			if len(e.execQueue) == 0 {
				e.mu.Unlock()
				break
			}
			res := e.execQueue[0]
			e.execQueue = e.execQueue[1:]
			e.mu.Unlock()

			e.relayFinalized(ctx, res)

			if e.executor == nil {
				continue
			}

			// Execution results never un-finalize a round; failures
			// are surfaced and the queue keeps draining.
			if err := e.executor.ExecuteSlice(ctx, res); err != nil {
				logging.WithError(err).WithField("round", res.Round).Error("executing slice")
			}
		}
	}
}

// relayFinalized re-broadcasts the blocks of a finalized slice so the
// finalized frontier keeps spreading. Peers that already hold them see
// a duplicate delivery, which is a no-op.
func (e *Engine) relayFinalized(ctx context.Context, res *ExecResult) {
	if e.broadcaster == nil {
		return
	}

	for _, h := range res.Blocks {
		b, err := e.dag.Get(h)
		if err != nil {
			continue
		}
		if err := e.broadcaster.BroadcastBlock(ctx, b); err != nil {
			logging.WithError(err).WithField("block", h).Error("relaying finalized block")
		}
	}
}

func (e *Engine) proposeLoop(ctx context.Context) {
	bo := &backoff.Backoff{
		Min:    e.proposeInterval,
		Max:    10 * e.proposeInterval,
		Jitter: true,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.Duration()):
		}

		if _, err := e.ProposeBlock(ctx, e.memPool.Pending()); err != nil {
			switch {
			case errors.Is(err, ErrEmptyProposal), errors.Is(err, ErrSuperseded):
				logging.Entry().WithError(err).Debug("skipping proposal")
			default:
				logging.WithError(err).Error("proposing block")
			}
			continue
		}

		bo.Reset()
	}
}

// GetBlock looks a block up by hash.
func (e *Engine) GetBlock(h types.Hash) (*types.Block, error) {
	return e.dag.Get(h)
}

// FinalizedHeight returns the highest finalized round number.
func (e *Engine) FinalizedHeight() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.finalizedRound
}

// FinalizedOrder returns a copy of the canonical transaction order so
// far. The sequence is append only.
func (e *Engine) FinalizedOrder() []types.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Hash, len(e.order))
	copy(out, e.order)

	return out
}

// State reports the lifecycle state of a round: Finalized for closed
// rounds, the live state for the current target, Collecting for rounds
// not yet reached.
func (e *Engine) State(round uint64) RoundState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bootstrapped && round <= e.finalizedRound {
		return Finalized
	}
	if round == e.finalizedRound+1 {
		return e.targetState
	}

	return Collecting
}

// Witnesses returns the witness set for a round: frozen for finalized
// rounds, the provisional set for the live target.
func (e *Engine) Witnesses(round uint64) (*WitnessSet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if r, ok := e.rounds[round]; ok {
		return r.Witnesses, true
	}
	if round == e.finalizedRound+1 && e.targetSet != nil {
		return e.targetSet, true
	}

	return nil, false
}

// Author returns the address this engine signs with, zero for
// observers.
func (e *Engine) Author() types.Address {
	return e.author
}

func sameFrontier(a, b []types.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
