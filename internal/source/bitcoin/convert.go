// Package bitcoin reads block headers from a bitcoind-compatible node over JSON-RPC.
package bitcoin

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/pkg/safe"
)

// ParseBits parses a hex bits string into a 32-bit value.
func ParseBits(value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}

// BuildHeaderFromVerbose maps a verbose getblockheader result into a model.Header.
// The genesis block has no previous hash and keeps a zero PrevHash.
func BuildHeaderFromVerbose(src btcjson.GetBlockHeaderVerboseResult, network model.Network) (model.Header, error) {
	height, err := safe.Uint64(src.Height)
	if err != nil {
		return model.Header{}, fmt.Errorf("block height %d: %w", src.Height, err)
	}
	bits, err := ParseBits(src.Bits)
	if err != nil {
		return model.Header{}, fmt.Errorf("block %d bits parse: %w", src.Height, err)
	}
	hash, err := chainhash.NewHashFromStr(src.Hash)
	if err != nil {
		return model.Header{}, fmt.Errorf("block %d hash parse: %w", src.Height, err)
	}

	var prev chainhash.Hash
	if src.PreviousHash != "" {
		p, err := chainhash.NewHashFromStr(src.PreviousHash)
		if err != nil {
			return model.Header{}, fmt.Errorf("block %d previous hash parse: %w", src.Height, err)
		}
		prev = *p
	}

	id := algo.FromVersion(src.Version)
	if !id.Valid() {
		return model.Header{}, fmt.Errorf("block %d version %#x: %w", src.Height, src.Version, algo.ErrUnknown)
	}

	return model.Header{
		Network:  network,
		Height:   height,
		Hash:     *hash,
		PrevHash: prev,
		Version:  src.Version,
		Time:     src.Time,
		Bits:     bits,
		Algo:     id,
	}, nil
}
