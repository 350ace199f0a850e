package consensus

import "github.com/avatolabs/go-olympus/pkg/types"

type RoundState uint8

const (
	// Collecting: the round's witness set is still being identified.
	Collecting RoundState = iota + 1
	// Voting: the witness set is complete and approvals are tallied.
	Voting
	// Finalized: quorum reached, the round's slice of canonical order
	// is fixed forever.
	Finalized
	// Stalled: quorum not reached within the configured number of
	// subsequent rounds. A stable waiting state, not a failure: votes
	// keep accumulating and the round may still finalize.
	Stalled
)

func (s RoundState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Voting:
		return "voting"
	case Finalized:
		return "finalized"
	case Stalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// WitnessSet is the outcome of witness selection for one round.
// Members are in ascending hash order. Complete is true once every
// member of the previous round's set is covered and the minimum size
// is met; only a complete set opens voting.
type WitnessSet struct {
	Round    uint64
	Members  []types.Hash
	Complete bool
}

// Round tracks a finalized round's frozen decision. Unfinalized rounds
// are recomputed from the DAG on every insertion and never stored.
type Round struct {
	Number    uint64
	Witnesses *WitnessSet
	State     RoundState
}
