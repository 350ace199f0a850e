package consensus

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avatolabs/go-olympus/pkg/types"
)

type MsgType uint16

const (
	MsgTypeTx MsgType = iota + 1
	MsgTypeBlock
)

// Msg is the wire envelope exchanged with the network layer. Exactly
// one payload field is set according to Type.
type Msg struct {
	Type  MsgType            `msgpack:"t"`
	Tx    *types.Transaction `msgpack:"tx,omitempty"`
	Block *types.Block       `msgpack:"bl,omitempty"`
	Ts    int64              `msgpack:"ts"`
}

func (m *Msg) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling msg")
	}

	return b, nil
}

func (m *Msg) Unmarshal(b []byte) error {
	if err := msgpack.Unmarshal(b, m); err != nil {
		return errors.Wrap(err, "unmarshaling msg")
	}

	switch m.Type {
	case MsgTypeTx:
		if m.Tx == nil {
			return errors.Wrap(ErrUnknownMsg, "tx msg without tx")
		}
	case MsgTypeBlock:
		if m.Block == nil {
			return errors.Wrap(ErrUnknownMsg, "block msg without block")
		}
	default:
		return errors.Wrapf(ErrUnknownMsg, "type %d", m.Type)
	}

	return nil
}
