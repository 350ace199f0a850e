package types

import (
	"crypto/ecdsa"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avatolabs/go-olympus/pkg/cryptography"
)

// Transaction is an account-model transfer or contract call. It is
// immutable once signed; its identity is the keccak digest of the
// signed encoding.
type Transaction struct {
	Nonce     uint64  `msgpack:"n"`
	GasPrice  U256    `msgpack:"gp"`
	Gas       uint64  `msgpack:"g"`
	To        Address `msgpack:"to"`
	Value     U256    `msgpack:"v"`
	Payload   []byte  `msgpack:"d,omitempty"`
	ChainID   uint64  `msgpack:"c"`
	Signature []byte  `msgpack:"s,omitempty"`

	from atomic.Value
}

func (t *Transaction) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling tx")
	}

	return b, nil
}

func (t *Transaction) Unmarshal(b []byte) error {
	if err := msgpack.Unmarshal(b, t); err != nil {
		return errors.Wrap(err, "unmarshaling tx")
	}

	return nil
}

// Hash is the content identity of the signed transaction.
func (t *Transaction) Hash() Hash {
	b, _ := t.Marshal()
	return Hash(cryptography.Keccak256(b))
}

// SigHash is the digest covered by the signature: the encoding with the
// signature itself omitted.
func (t *Transaction) SigHash() Hash {
	unsigned := &Transaction{
		Nonce:    t.Nonce,
		GasPrice: t.GasPrice,
		Gas:      t.Gas,
		To:       t.To,
		Value:    t.Value,
		Payload:  t.Payload,
		ChainID:  t.ChainID,
	}

	b, _ := unsigned.Marshal()
	return Hash(cryptography.Keccak256(b))
}

// IsContractCreation reports whether the transaction deploys code
// rather than calling an existing account.
func (t *Transaction) IsContractCreation() bool {
	return t.To.IsZero()
}

func (t *Transaction) Sign(pk *ecdsa.PrivateKey) error {
	sig, err := cryptography.Sign(t.SigHash(), pk)
	if err != nil {
		return errors.Wrap(err, "signing tx")
	}

	t.Signature = sig
	t.from.Store(Address(cryptography.PubkeyToAddress(&pk.PublicKey)))

	return nil
}

// Sender recovers the signing address. The result is cached; a
// transaction never changes once signed.
func (t *Transaction) Sender() (Address, error) {
	if from := t.from.Load(); from != nil {
		return from.(Address), nil
	}

	addr, err := cryptography.Recover(t.SigHash(), t.Signature)
	if err != nil {
		return ZeroAddress, err
	}

	from := Address(addr)
	t.from.Store(from)

	return from, nil
}
