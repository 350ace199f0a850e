package dag

import "github.com/pkg/errors"

var (
	ErrNotFound       = errors.New("block not found")
	ErrUnknownParent  = errors.New("unknown parent")
	ErrDuplicateBlock = errors.New("duplicate block")
	ErrCyclic         = errors.New("cyclic reference")
	ErrGenesisSet     = errors.New("genesis already set")
)
