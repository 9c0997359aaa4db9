package pow

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

// CheckProofOfWork reports whether hash satisfies the compact target bits.
// Bits that decode negative, zero, overflowing or above the network's
// PowLimit are rejected before the hash is compared.
func CheckProofOfWork(hash chainhash.Hash, bits uint32, params *consensus.Params) bool {
	t, negative, overflow := target.DecodeCompact(bits)
	if negative || overflow || t.IsZero() || t.Gt(&params.PowLimit) {
		return false
	}
	h := target.FromHash(hash)
	return !h.Gt(&t)
}
