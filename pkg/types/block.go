package types

import (
	"crypto/ecdsa"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avatolabs/go-olympus/pkg/cryptography"
)

// Block is a node of the DAG. Parents reference one or more earlier
// blocks; Previous links the author's own prior block. TxHashes,
// Witnesses and Approvals are ordered and covered by the signature.
// Identity is the keccak digest of the signed encoding.
type Block struct {
	Author    Address `msgpack:"a"`
	Previous  Hash    `msgpack:"pv"`
	Parents   []Hash  `msgpack:"p"`
	TxHashes  []Hash  `msgpack:"tx"`
	Witnesses []Hash  `msgpack:"w"`
	Approvals []Hash  `msgpack:"ap"`
	Timestamp int64   `msgpack:"ts"`
	GasUsed   uint64  `msgpack:"g"`
	Signature []byte  `msgpack:"s,omitempty"`
}

func (b *Block) Marshal() ([]byte, error) {
	d, err := msgpack.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling block")
	}

	return d, nil
}

func (b *Block) Unmarshal(d []byte) error {
	if err := msgpack.Unmarshal(d, b); err != nil {
		return errors.Wrap(err, "unmarshaling block")
	}

	return nil
}

// Hash is the content identity of the signed block.
func (b *Block) Hash() Hash {
	d, _ := b.Marshal()
	return Hash(cryptography.Keccak256(d))
}

// SigHash is the digest covered by the author signature.
func (b *Block) SigHash() Hash {
	unsigned := *b
	unsigned.Signature = nil

	d, _ := unsigned.Marshal()
	return Hash(cryptography.Keccak256(d))
}

// IsGenesis reports whether the block is the parentless DAG root.
func (b *Block) IsGenesis() bool {
	return len(b.Parents) == 0
}

func (b *Block) Sign(pk *ecdsa.PrivateKey) error {
	sig, err := cryptography.Sign(b.SigHash(), pk)
	if err != nil {
		return errors.Wrap(err, "signing block")
	}

	b.Signature = sig

	return nil
}

// VerifySignature checks the author signature. The genesis block is
// unsigned and always passes.
func (b *Block) VerifySignature() (bool, error) {
	if b.IsGenesis() {
		return true, nil
	}

	return cryptography.VerifyAddress(b.Author, b.SigHash(), b.Signature)
}
