package consensus

import "github.com/pkg/errors"

var (
	ErrBadSignature    = errors.New("bad signature")
	ErrInvalidNonce    = errors.New("invalid nonce")
	ErrInsufficientGas = errors.New("insufficient gas")
	ErrWrongChain      = errors.New("wrong chain id")

	ErrInvalidBlock = errors.New("invalid block")
	ErrUnknownTx    = errors.New("unknown transaction")
	ErrPoolFull     = errors.New("transaction pool full")

	ErrEmptyProposal = errors.New("empty proposal")
	ErrSuperseded    = errors.New("proposal superseded by newer frontier")

	ErrUnknownMsg = errors.New("unknown message type")
)
