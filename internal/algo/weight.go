package algo

import "go.uber.org/zap"

// WeightScale is the fixed-point base of the weight table.
const WeightScale = 100000

const lowestShare = 0.00015

// WeightTable maps algorithms to their intended share of block production.
// It is advisory and never consulted by the retarget engine.
type WeightTable struct {
	logger *zap.Logger
}

// NewWeightTable returns a WeightTable reporting unknown ids through logger.
func NewWeightTable(logger *zap.Logger) WeightTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return WeightTable{logger: logger}
}

// Weight returns the scaled share for id. Unknown ids get the lowest weight.
func (t WeightTable) Weight(id ID) uint32 {
	var share float64
	switch id {
	case SHA256d:
		share = 0.005
	case Yespower:
		share = lowestShare
	case Ghostrider:
		share = 6
	case Lyra2:
		share = 6
	case ButKScrypt:
		share = 1.4
	case Scrypt:
		share = 1.2
	default:
		t.logger.Warn("can't find algo weight, using lowest", zap.Uint8("algo", uint8(id)))
		share = lowestShare
	}
	return uint32(share * WeightScale)
}
