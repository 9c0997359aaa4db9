// Package pow computes the difficulty each algorithm must meet and checks
// submitted proofs of work against it.
//
// Every function here is deterministic and side-effect free apart from the
// optional Observer; nodes must derive identical bits from identical history.
package pow

import (
	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/chainindex"
	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
)

// minDifficultyGapSpacings is how many target spacings a block must trail its
// parent by before it counts as a minimum-difficulty exception.
const minDifficultyGapSpacings = 6

// LastBlockForAlgo returns the most recent block at or below tip mined with
// id. Minimum-difficulty exception blocks are skipped when the network allows
// them. ok is false when no such block exists.
func LastBlockForAlgo(view chainindex.View, tip chainindex.Ref, params *consensus.Params, id algo.ID) (ref chainindex.Ref, ok bool) {
	for ref = tip; ref != chainindex.NoRef; ref = view.Parent(ref) {
		rec := view.Record(ref)
		if rec.Algo != id {
			continue
		}
		if params.PowAllowMinDifficultyBlocks {
			if parent := view.Parent(ref); parent != chainindex.NoRef &&
				rec.Time > view.Record(parent).Time+params.PowTargetSpacing*minDifficultyGapSpacings {
				continue
			}
		}
		return ref, true
	}
	return chainindex.NoRef, false
}
