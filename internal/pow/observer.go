package pow

import (
	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
)

// Reason explains which branch produced a retarget result.
type Reason string

const (
	ReasonRetarget      Reason = "retarget"
	ReasonGenesis       Reason = "genesis"
	ReasonShortHistory  Reason = "short_history"
	ReasonNoPriorAlgo   Reason = "no_prior_algo"
	ReasonNoRetargeting Reason = "no_retargeting"
)

// Retarget describes one NextWorkRequired call.
type Retarget struct {
	Network string
	Algo    algo.ID
	// Height is the height of the block being retargeted, i.e. tip height + 1.
	Height       int64
	Adjustments  int64
	PowLimitBits uint32
	Bits         uint32
	Reason       Reason
}

// Observer receives a record of every retarget computation.
// Implementations must not block; they run on the validation path.
type Observer interface {
	ObserveRetarget(r Retarget)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r Retarget)

// ObserveRetarget calls f(r).
func (f ObserverFunc) ObserveRetarget(r Retarget) {
	f(r)
}

// Observers fans a record out to several observers in order.
type Observers []Observer

// ObserveRetarget forwards r to every observer.
func (o Observers) ObserveRetarget(r Retarget) {
	for _, obs := range o {
		obs.ObserveRetarget(r)
	}
}

type nopObserver struct{}

func (nopObserver) ObserveRetarget(Retarget) {}

// LogObserver writes one debug line per retarget call.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver returns a LogObserver writing to logger.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// ObserveRetarget logs r.
func (o *LogObserver) ObserveRetarget(r Retarget) {
	o.logger.Debug("calc next work",
		zap.String("network", r.Network),
		zap.Stringer("algo", r.Algo),
		zap.Int64("height", r.Height),
		zap.Int64("adjust", r.Adjustments),
		zap.String("pow_limit", bitsHex(r.PowLimitBits)),
		zap.String("result", bitsHex(r.Bits)),
		zap.String("reason", string(r.Reason)),
	)
}
