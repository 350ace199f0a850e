package consensus

import (
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

// ApprovalEngine counts votes for witness candidates. A block votes for
// a candidate when the candidate sits in its ancestry or in its direct
// approval list; each author contributes at most one vote per
// candidate regardless of how many blocks they published.
type ApprovalEngine struct {
	dag *dag.Store

	quorumNum uint64
	quorumDen uint64
}

// TallyResult captures one voting pass over a witness set.
type TallyResult struct {
	// Approved holds every candidate that reached quorum, in
	// ascending hash order.
	Approved []types.Hash

	// Counts maps each candidate to the number of distinct authors
	// voting for it.
	Counts map[types.Hash]int

	// Finalized is true once at least one candidate reached quorum.
	Finalized bool
}

func NewApprovalEngine(d *dag.Store, num, den uint64) *ApprovalEngine {
	if num == 0 || den == 0 {
		num, den = 2, 3
	}

	return &ApprovalEngine{dag: d, quorumNum: num, quorumDen: den}
}

// MeetsQuorum reports whether count distinct approvers out of size
// witnesses clears the threshold. The comparison is strict: with the
// default 2/3 ratio, 2 of 3 does not finalize but 3 of 3 does.
func (e *ApprovalEngine) MeetsQuorum(count, size int) bool {
	if size == 0 {
		return false
	}

	return e.quorumDen*uint64(count) > e.quorumNum*uint64(size)
}

// sees reports whether voter endorses candidate, by direct approval
// reference or by ancestry.
func (e *ApprovalEngine) sees(voter dag.Entry, candidate types.Hash) bool {
	for _, ap := range voter.Block.Approvals {
		if ap == candidate {
			return true
		}
	}

	return e.dag.IsAncestor(candidate, voter.Hash)
}

// Tally counts approvals for the candidates of a round. Voters are all
// blocks strictly deeper than the round, deduplicated by author per
// candidate, so a single validator flooding blocks gains no weight.
func (e *ApprovalEngine) Tally(round uint64, candidates []types.Hash) *TallyResult {
	res := &TallyResult{Counts: make(map[types.Hash]int, len(candidates))}

	voters := make(map[types.Hash]map[types.Address]struct{}, len(candidates))
	for _, c := range candidates {
		voters[c] = make(map[types.Address]struct{})
	}

	for _, entry := range e.dag.Entries() {
		if entry.Depth <= round {
			continue
		}
		for _, c := range candidates {
			if _, ok := voters[c][entry.Block.Author]; ok {
				continue
			}
			if e.sees(entry, c) {
				voters[c][entry.Block.Author] = struct{}{}
			}
		}
	}

	size := len(candidates)
	for _, c := range candidates {
		n := len(voters[c])
		res.Counts[c] = n
		if e.MeetsQuorum(n, size) {
			res.Approved = append(res.Approved, c)
		}
	}

	types.SortHashes(res.Approved)
	res.Finalized = len(res.Approved) > 0

	return res
}
