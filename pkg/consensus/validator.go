package consensus

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/avatolabs/go-olympus/pkg/types"
)

const (
	// TxGas is the base cost charged to every transaction.
	TxGas uint64 = 21000

	// TxGasContractCreation is the additional base cost for
	// transactions that create a contract.
	TxGasContractCreation uint64 = 32000

	// TxDataNonZeroGas is charged per non-zero payload byte.
	TxDataNonZeroGas uint64 = 68

	// TxDataZeroGas is charged per zero payload byte.
	TxDataZeroGas uint64 = 4
)

// IntrinsicGas computes the minimum gas a transaction must advertise
// before it can be admitted. Returns ErrInsufficientGas when the
// payload is large enough to overflow the cost counter.
func IntrinsicGas(payload []byte, contractCreation bool) (uint64, error) {
	gas := TxGas
	if contractCreation {
		gas += TxGasContractCreation
	}

	if len(payload) > 0 {
		var nz uint64
		for _, b := range payload {
			if b != 0 {
				nz++
			}
		}
		if (math.MaxUint64-gas)/TxDataNonZeroGas < nz {
			return 0, errors.Wrap(ErrInsufficientGas, "payload gas overflow")
		}
		gas += nz * TxDataNonZeroGas

		z := uint64(len(payload)) - nz
		if (math.MaxUint64-gas)/TxDataZeroGas < z {
			return 0, errors.Wrap(ErrInsufficientGas, "payload gas overflow")
		}
		gas += z * TxDataZeroGas
	}

	return gas, nil
}

// TxValidator admits transactions into the mempool and tracks the next
// expected nonce per sender. Admission rejects stale nonces outright
// but lets future nonces through; the proposer holds those back until
// the gap closes.
type TxValidator struct {
	mu      sync.RWMutex
	nonces  map[types.Address]uint64
	chainID uint64
}

func NewTxValidator(chainID uint64) *TxValidator {
	return &TxValidator{
		nonces:  make(map[types.Address]uint64),
		chainID: chainID,
	}
}

// ValidateStateless checks everything about a transaction that does
// not depend on account state: signature, chain binding and gas floor.
// Blocks carrying transactions from other validators are checked with
// this form, since their senders' nonces may legitimately run ahead of
// what this node has finalized.
func (v *TxValidator) ValidateStateless(tx *types.Transaction) (types.Address, error) {
	if tx.ChainID != v.chainID {
		return types.ZeroAddress, errors.Wrapf(ErrWrongChain, "got %d want %d", tx.ChainID, v.chainID)
	}

	from, err := tx.Sender()
	if err != nil {
		return types.ZeroAddress, errors.Wrap(ErrBadSignature, err.Error())
	}

	gas, err := IntrinsicGas(tx.Payload, tx.IsContractCreation())
	if err != nil {
		return types.ZeroAddress, err
	}
	if tx.Gas < gas {
		return types.ZeroAddress, errors.Wrapf(ErrInsufficientGas, "have %d want %d", tx.Gas, gas)
	}

	return from, nil
}

// Validate runs the stateless checks plus nonce admission: a nonce
// below the sender's next expected value can never finalize and is
// rejected; anything at or above it is admitted.
func (v *TxValidator) Validate(tx *types.Transaction) (types.Address, error) {
	from, err := v.ValidateStateless(tx)
	if err != nil {
		return types.ZeroAddress, err
	}

	v.mu.RLock()
	expected := v.nonces[from]
	v.mu.RUnlock()

	if tx.Nonce < expected {
		return types.ZeroAddress, errors.Wrapf(ErrInvalidNonce, "got %d want >= %d", tx.Nonce, expected)
	}

	return from, nil
}

// Observe records a finalized transaction, advancing the sender's
// expected nonce past it. Out-of-order observations keep the highest
// watermark.
func (v *TxValidator) Observe(from types.Address, nonce uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if next := nonce + 1; next > v.nonces[from] {
		v.nonces[from] = next
	}
}

// NextNonce returns the next nonce expected from a sender.
func (v *TxValidator) NextNonce(from types.Address) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.nonces[from]
}

// SetNonce seeds a sender's expected nonce, used when bootstrapping
// from a genesis allocation or a replayed store.
func (v *TxValidator) SetNonce(from types.Address, nonce uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nonces[from] = nonce
}
