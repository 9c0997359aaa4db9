// Package consensus holds the immutable per-network retarget parameters.
package consensus

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

var (
	// ErrInvalidParams is returned by Validate for inconsistent parameter sets.
	ErrInvalidParams = errors.New("invalid consensus params")
	// ErrUnknownNetwork is returned by ForNetwork for unsupported networks.
	ErrUnknownNetwork = errors.New("unknown network")
)

// Params defines the retarget rules of a network.
type Params struct {
	Name string

	// PowLimit is the highest target any block may claim.
	PowLimit uint256.Int

	// PowTargetSpacing is the desired time between consecutive blocks of any algorithm, in seconds.
	PowTargetSpacing int64

	// AveragingInterval is the retarget window length in blocks per algorithm.
	AveragingInterval int64

	// AveragingTargetTimespan is the expected duration of the whole window, in seconds.
	AveragingTargetTimespan int64

	MinActualTimespan int64
	MaxActualTimespan int64

	// LocalTargetAdjustment is the per-step percentage of the per-algorithm compensation.
	LocalTargetAdjustment int64

	// PowNoRetargeting pins every block to PowLimit.
	PowNoRetargeting bool

	// PowAllowMinDifficultyBlocks allows minimum-difficulty blocks after a long gap.
	// Such blocks are excluded from difficulty history.
	PowAllowMinDifficultyBlocks bool
}

// PowLimitBits returns PowLimit in compact form.
func (p *Params) PowLimitBits() uint32 {
	return target.EncodeCompact(&p.PowLimit)
}

// Validate checks the invariants the retarget engine relies on.
func (p *Params) Validate() error {
	switch {
	case p.PowLimit.IsZero():
		return fmt.Errorf("%w: pow limit is zero", ErrInvalidParams)
	case p.PowTargetSpacing <= 0:
		return fmt.Errorf("%w: target spacing %d", ErrInvalidParams, p.PowTargetSpacing)
	case p.AveragingInterval <= 0:
		return fmt.Errorf("%w: averaging interval %d", ErrInvalidParams, p.AveragingInterval)
	case p.MinActualTimespan <= 0:
		return fmt.Errorf("%w: min actual timespan %d", ErrInvalidParams, p.MinActualTimespan)
	case p.MinActualTimespan > p.AveragingTargetTimespan || p.AveragingTargetTimespan > p.MaxActualTimespan:
		return fmt.Errorf("%w: timespans must satisfy %d <= %d <= %d", ErrInvalidParams,
			p.MinActualTimespan, p.AveragingTargetTimespan, p.MaxActualTimespan)
	case p.LocalTargetAdjustment < 0:
		return fmt.Errorf("%w: local target adjustment %d", ErrInvalidParams, p.LocalTargetAdjustment)
	}
	return nil
}

// ForNetwork returns the preset parameters of network.
func ForNetwork(network model.Network) (*Params, error) {
	switch network {
	case model.Mainnet:
		return MainNetParams(), nil
	case model.Testnet:
		return TestNetParams(), nil
	case model.Regtest:
		return RegTestParams(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
}

// MainNetParams returns the main network parameters.
func MainNetParams() *Params {
	return newParams("mainnet", mainPowLimit(), 60, 10, 4, 4, 4)
}

// TestNetParams returns the public test network parameters.
func TestNetParams() *Params {
	p := newParams("testnet", mainPowLimit(), 60, 10, 4, 4, 4)
	p.PowAllowMinDifficultyBlocks = true
	return p
}

// RegTestParams returns the regression test parameters. Retargeting is disabled.
func RegTestParams() *Params {
	p := newParams("regtest", regTestPowLimit(), 60, 10, 4, 4, 4)
	p.PowAllowMinDifficultyBlocks = true
	p.PowNoRetargeting = true
	return p
}

func newParams(name string, powLimit uint256.Int, spacing, interval, maxAdjustUp, maxAdjustDown, local int64) *Params {
	timespan := interval * algo.NumAlgos * spacing
	return &Params{
		Name:                    name,
		PowLimit:                powLimit,
		PowTargetSpacing:        spacing,
		AveragingInterval:       interval,
		AveragingTargetTimespan: timespan,
		MinActualTimespan:       timespan * (100 - maxAdjustUp) / 100,
		MaxActualTimespan:       timespan * (100 + maxAdjustDown) / 100,
		LocalTargetAdjustment:   local,
	}
}

// mainPowLimit is 2^236 - 1.
func mainPowLimit() uint256.Int {
	return limitBelowPowerOfTwo(236)
}

// regTestPowLimit is 2^255 - 1.
func regTestPowLimit() uint256.Int {
	return limitBelowPowerOfTwo(255)
}

func limitBelowPowerOfTwo(bits uint) uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), bits)
	v.SubUint64(&v, 1)
	return v
}
