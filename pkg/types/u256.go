package types

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// U256 is a 256-bit unsigned integer with a compact big-endian wire
// form. Balances, values and gas prices use it.
type U256 struct {
	uint256.Int
}

var (
	_ msgpack.CustomEncoder = (*U256)(nil)
	_ msgpack.CustomDecoder = (*U256)(nil)
)

func NewU256(v uint64) U256 {
	var u U256
	u.SetUint64(v)
	return u
}

func U256FromBig(b *big.Int) (U256, error) {
	var u U256

	if b == nil {
		return u, nil
	}

	i, overflow := uint256.FromBig(b)
	if overflow {
		return u, errors.New("value overflows 256 bits")
	}

	u.Int = *i
	return u, nil
}

func (u *U256) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(u.Bytes())
}

func (u *U256) DecodeMsgpack(dec *msgpack.Decoder) error {
	d, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(d) > 32 {
		return errors.Errorf("value must be at most 32 bytes, got %d", len(d))
	}

	u.SetBytes(d)
	return nil
}
