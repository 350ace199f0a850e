package consensus

import (
	"crypto/ecdsa"
	"time"

	"github.com/pkg/errors"

	"github.com/avatolabs/go-olympus/pkg/cryptography"
)

const (
	// DefaultChainID identifies the Olympus main network.
	DefaultChainID uint64 = 970

	// DefaultBlockGasLimit bounds the gas a single block may carry.
	DefaultBlockGasLimit uint64 = 50_000_000

	// DefaultMinWitnesses is the smallest witness set considered
	// complete.
	DefaultMinWitnesses = 3

	// DefaultMaxWitnesses caps the witness set per round.
	DefaultMaxWitnesses = 21

	// DefaultStallRounds is how many complete witness sets may form
	// ahead of an unfinalized round before it is declared stalled.
	DefaultStallRounds = 3

	// DefaultClockDrift is how far into the future a block timestamp
	// may run before the block is rejected.
	DefaultClockDrift = 5 * time.Minute

	// DefaultProposeInterval is the pause between proposal attempts.
	DefaultProposeInterval = 2 * time.Second

	// DefaultMaxPending bounds blocks parked for missing parents.
	DefaultMaxPending = 1024
)

type Option func(*Engine) error

// WithSigningKey gives the engine an identity, enabling proposals.
// Engines without a key run as observers.
func WithSigningKey(pk *ecdsa.PrivateKey) Option {
	return func(e *Engine) error {
		if pk == nil {
			return errors.New("nil signing key")
		}

		e.signingKey = pk
		e.author = cryptography.PubkeyToAddress(&pk.PublicKey)
		return nil
	}
}

func WithChainID(id uint64) Option {
	return func(e *Engine) error {
		e.chainID = id
		return nil
	}
}

func WithMemPool(m MemPool) Option {
	return func(e *Engine) error {
		e.memPool = m
		return nil
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) error {
		e.broadcaster = b
		return nil
	}
}

func WithExecutor(x Executor) Option {
	return func(e *Engine) error {
		e.executor = x
		return nil
	}
}

func WithTxPersistence(p TxPersistence) Option {
	return func(e *Engine) error {
		e.txStore = p
		return nil
	}
}

func WithBlockGasLimit(limit uint64) Option {
	return func(e *Engine) error {
		if limit == 0 {
			return errors.New("zero block gas limit")
		}

		e.blockGasLimit = limit
		return nil
	}
}

func WithProposeInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.proposeInterval = d
		return nil
	}
}

// WithAllowEmptyProposals lets the proposal loop publish blocks with
// no transactions, which keeps rounds advancing on a quiet network.
func WithAllowEmptyProposals(allow bool) Option {
	return func(e *Engine) error {
		e.allowEmpty = allow
		return nil
	}
}

func WithStallRounds(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.New("stall rounds must be positive")
		}

		e.stallRounds = n
		return nil
	}
}

// WithQuorum overrides the approval threshold. count/size must exceed
// num/den strictly for a candidate to finalize.
func WithQuorum(num, den uint64) Option {
	return func(e *Engine) error {
		if num == 0 || den == 0 || num >= den {
			return errors.Errorf("invalid quorum ratio %d/%d", num, den)
		}

		e.quorumNum, e.quorumDen = num, den
		return nil
	}
}

func WithWitnessBounds(min, max int) Option {
	return func(e *Engine) error {
		if min < 1 || max < min {
			return errors.Errorf("invalid witness bounds [%d, %d]", min, max)
		}

		e.minWitnesses, e.maxWitnesses = min, max
		return nil
	}
}

func WithClockDrift(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			return errors.New("clock drift must be positive")
		}

		e.clockDrift = d
		return nil
	}
}

func WithMaxPending(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return errors.New("max pending must be positive")
		}

		e.maxPending = n
		return nil
	}
}
