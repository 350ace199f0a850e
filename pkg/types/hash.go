package types

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is a 32-byte keccak content digest identifying blocks and
// transactions.
type Hash [HashLength]byte

// Address is the low 20 bytes of the keccak digest of an account's
// public key.
type Address [AddressLength]byte

var (
	ZeroHash    Hash
	ZeroAddress Address

	_ msgpack.CustomEncoder = (*Hash)(nil)
	_ msgpack.CustomDecoder = (*Hash)(nil)
	_ msgpack.CustomEncoder = (*Address)(nil)
	_ msgpack.CustomDecoder = (*Address)(nil)
)

func HashFromHex(s string) (Hash, error) {
	var h Hash

	d, err := hex.DecodeString(s)
	if err != nil {
		return h, errors.Wrap(err, "decoding hash hex")
	}
	if len(d) != HashLength {
		return h, errors.Errorf("hash must be %d bytes, got %d", HashLength, len(d))
	}

	copy(h[:], d)
	return h, nil
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h *Hash) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(h[:])
}

func (h *Hash) DecodeMsgpack(dec *msgpack.Decoder) error {
	d, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(d) != HashLength {
		return errors.Errorf("hash must be %d bytes, got %d", HashLength, len(d))
	}

	copy(h[:], d)
	return nil
}

func AddressFromHex(s string) (Address, error) {
	var a Address

	d, err := hex.DecodeString(s)
	if err != nil {
		return a, errors.Wrap(err, "decoding address hex")
	}
	if len(d) != AddressLength {
		return a, errors.Errorf("address must be %d bytes, got %d", AddressLength, len(d))
	}

	copy(a[:], d)
	return a, nil
}

func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a *Address) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(a[:])
}

func (a *Address) DecodeMsgpack(dec *msgpack.Decoder) error {
	d, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(d) != AddressLength {
		return errors.Errorf("address must be %d bytes, got %d", AddressLength, len(d))
	}

	copy(a[:], d)
	return nil
}

// HashLess orders hashes by their byte representation. Used wherever a
// deterministic tie-break between sibling blocks is needed.
func HashLess(a, b Hash) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// SortHashes sorts in place into ascending byte order.
func SortHashes(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return HashLess(hs[i], hs[j]) })
}
