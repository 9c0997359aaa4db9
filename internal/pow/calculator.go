package pow

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/chainindex"
	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

// dampingDivisor limits how much of the measured timespan deviation is applied.
const dampingDivisor = 4

// Calculator computes the next required compact target for an algorithm.
// It holds no chain state and may be shared between goroutines as long as the
// Observer is safe for concurrent use.
type Calculator struct {
	observer Observer
}

// NewCalculator returns a Calculator reporting to observer. A nil observer disables reporting.
func NewCalculator(observer Observer) *Calculator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Calculator{observer: observer}
}

// NextWorkRequired returns the compact target a block of algorithm id must
// meet when built on tip. Pass chainindex.NoRef as tip for the genesis block.
// Missing history never fails the call; it yields the network's PowLimit.
func (c *Calculator) NextWorkRequired(view chainindex.View, tip chainindex.Ref, params *consensus.Params, id algo.ID) uint32 {
	report := Retarget{
		Network:      params.Name,
		Algo:         id,
		PowLimitBits: params.PowLimitBits(),
	}
	bits, adjustments, reason := c.nextWorkRequired(view, tip, params, id)
	if tip != chainindex.NoRef {
		report.Height = view.Record(tip).Height + 1
	}
	report.Adjustments = adjustments
	report.Bits = bits
	report.Reason = reason
	c.observer.ObserveRetarget(report)
	return bits
}

func (c *Calculator) nextWorkRequired(view chainindex.View, tip chainindex.Ref, params *consensus.Params, id algo.ID) (uint32, int64, Reason) {
	powLimitBits := params.PowLimitBits()
	if tip == chainindex.NoRef {
		return powLimitBits, 0, ReasonGenesis
	}

	// The window spans every algorithm, not just id.
	first := tip
	for i := int64(0); first != chainindex.NoRef && i < algo.NumAlgos*params.AveragingInterval; i++ {
		first = view.Parent(first)
	}

	prevAlgo, ok := LastBlockForAlgo(view, tip, params, id)
	switch {
	case first == chainindex.NoRef:
		return powLimitBits, 0, ReasonShortHistory
	case !ok:
		return powLimitBits, 0, ReasonNoPriorAlgo
	case params.PowNoRetargeting:
		return powLimitBits, 0, ReasonNoRetargeting
	}

	tipRec := view.Record(tip)
	prevRec := view.Record(prevAlgo)

	// Medians rather than raw timestamps resist time-warp attacks.
	actual := tipRec.MedianTime - view.Record(first).MedianTime
	actual = clampTimespan(dampenTimespan(actual, params.AveragingTargetTimespan), params)

	bn, _, _ := target.DecodeCompact(prevRec.Bits)
	bn.Mul(&bn, uint256.NewInt(uint64(actual)))
	bn.Div(&bn, uint256.NewInt(uint64(params.AveragingTargetTimespan)))

	adjustments := prevRec.Height + algo.NumAlgos - 1 - tipRec.Height
	bn = applyAdjustments(bn, adjustments, params)

	if bn.Gt(&params.PowLimit) {
		bn = params.PowLimit
	}
	return target.EncodeCompact(&bn), adjustments, ReasonRetarget
}

// dampenTimespan moves actual a quarter of the way from the target timespan.
// Division truncates toward zero.
func dampenTimespan(actual, targetTimespan int64) int64 {
	return targetTimespan + (actual-targetTimespan)/dampingDivisor
}

func clampTimespan(actual int64, params *consensus.Params) int64 {
	if actual < params.MinActualTimespan {
		return params.MinActualTimespan
	}
	if actual > params.MaxActualTimespan {
		return params.MaxActualTimespan
	}
	return actual
}

// applyAdjustments runs the per-algorithm compensation. Positive adjustments
// tighten the target by 100/(100+local) per step, negative ones ease it by
// (100+local)/100. Each step truncates, so the loop must not be replaced by a
// single power: the results differ. Once the target exceeds PowLimit it is
// clamped and the loop stops.
func applyAdjustments(bn uint256.Int, adjustments int64, params *consensus.Params) uint256.Int {
	hundred := uint256.NewInt(100)
	multiplier := uint256.NewInt(uint64(100 + params.LocalTargetAdjustment))

	mul, div := hundred, multiplier
	steps := adjustments
	if adjustments < 0 {
		mul, div = multiplier, hundred
		steps = -adjustments
	}
	for i := int64(0); i < steps; i++ {
		if bn.Gt(&params.PowLimit) {
			bn = params.PowLimit
			break
		}
		bn.Mul(&bn, mul)
		bn.Div(&bn, div)
	}
	return bn
}

func bitsHex(bits uint32) string {
	return fmt.Sprintf("%08x", bits)
}
