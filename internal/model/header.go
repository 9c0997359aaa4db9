package model

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
)

// Header is the subset of a block header the auditor replays.
type Header struct {
	Network  Network
	Height   uint64
	Hash     chainhash.Hash
	PrevHash chainhash.Hash
	Version  int32
	Time     int64
	Bits     uint32
	Algo     algo.ID
}
