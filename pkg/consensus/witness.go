package consensus

import (
	"github.com/avatolabs/go-olympus/pkg/dag"
	"github.com/avatolabs/go-olympus/pkg/types"
)

// WitnessSelector picks the witness set for a round. Selection is a
// pure function of the DAG snapshot: no randomness, no clock, so every
// node running over the same snapshot picks the same set.
type WitnessSelector struct {
	dag *dag.Store

	minWitnesses int
	maxWitnesses int
}

func NewWitnessSelector(d *dag.Store, min, max int) *WitnessSelector {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}

	return &WitnessSelector{dag: d, minWitnesses: min, maxWitnesses: max}
}

// reaches reports whether b links back to at least one member of prev,
// either through ancestry or by approving it directly.
func (s *WitnessSelector) reaches(b *types.Block, h types.Hash, prev []types.Hash) bool {
	for _, w := range prev {
		if s.dag.IsAncestor(w, h) {
			return true
		}
		for _, ap := range b.Approvals {
			if ap == w {
				return true
			}
		}
	}

	return false
}

// Candidates returns every block eligible to witness the given round:
// blocks at that depth, not already serving as a witness, whose lineage
// reaches at least one member of the previous round's witness set.
func (s *WitnessSelector) Candidates(round uint64, prev []types.Hash, taken map[types.Hash]struct{}) []dag.Entry {
	var out []dag.Entry

	for _, e := range s.dag.Entries() {
		if e.Depth != round {
			continue
		}
		if _, ok := taken[e.Hash]; ok {
			continue
		}
		if !s.reaches(e.Block, e.Hash, prev) {
			continue
		}

		out = append(out, e)
	}

	return out
}

// Select computes the witness set for round: one candidate per author,
// ties between a single author's candidates broken by smallest hash.
// The set is complete once it covers every member of prev and meets the
// minimum size; an oversized set is capped by keeping coverage first
// and filling the rest in ascending hash order.
func (s *WitnessSelector) Select(round uint64, prev []types.Hash, taken map[types.Hash]struct{}) *WitnessSet {
	cands := s.Candidates(round, prev, taken)

	best := make(map[types.Address]types.Hash, len(cands))
	for _, e := range cands {
		cur, ok := best[e.Block.Author]
		if !ok || types.HashLess(e.Hash, cur) {
			best[e.Block.Author] = e.Hash
		}
	}

	members := make([]types.Hash, 0, len(best))
	for _, h := range best {
		members = append(members, h)
	}
	types.SortHashes(members)

	if len(members) > s.maxWitnesses {
		members = s.truncate(members, prev)
	}

	return &WitnessSet{
		Round:    round,
		Members:  members,
		Complete: len(members) >= s.minWitnesses && s.covered(members, prev),
	}
}

// truncate shrinks an oversized member list to maxWitnesses, keeping
// coverage of prev first and filling the rest by smallest hash.
// members must already be in ascending hash order.
func (s *WitnessSelector) truncate(members, prev []types.Hash) []types.Hash {
	kept := make([]types.Hash, 0, s.maxWitnesses)
	used := make(map[types.Hash]struct{}, s.maxWitnesses)
	covered := make(map[types.Hash]struct{}, len(prev))

	for _, w := range prev {
		if len(kept) == s.maxWitnesses {
			break
		}
		if _, ok := covered[w]; ok {
			continue
		}

		for _, m := range members {
			if _, ok := used[m]; ok {
				continue
			}
			if s.sees(m, w) {
				kept = append(kept, m)
				used[m] = struct{}{}
				for _, w2 := range prev {
					if s.sees(m, w2) {
						covered[w2] = struct{}{}
					}
				}
				break
			}
		}
	}

	for _, m := range members {
		if len(kept) == s.maxWitnesses {
			break
		}
		if _, ok := used[m]; !ok {
			kept = append(kept, m)
			used[m] = struct{}{}
		}
	}

	types.SortHashes(kept)

	return kept
}

func (s *WitnessSelector) sees(member, w types.Hash) bool {
	if s.dag.IsAncestor(w, member) {
		return true
	}

	b, err := s.dag.Get(member)
	if err != nil {
		return false
	}
	for _, ap := range b.Approvals {
		if ap == w {
			return true
		}
	}

	return false
}

func (s *WitnessSelector) covered(members, prev []types.Hash) bool {
	for _, w := range prev {
		reached := false
		for _, m := range members {
			if s.sees(m, w) {
				reached = true
				break
			}
		}
		if !reached {
			return false
		}
	}

	return true
}
