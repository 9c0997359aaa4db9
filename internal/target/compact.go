// Package target converts between 256-bit difficulty targets and their
// 32-bit compact encoding.
//
// The compact form is a base-256 floating point number: the top byte is the
// length of the value in bytes, bit 0x00800000 is a sign flag and the
// remaining 23 bits are the most significant digits. Consensus depends on this
// encoding being reproduced bit for bit.
package target

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/holiman/uint256"
)

const (
	signBit      = 0x00800000
	mantissaMask = 0x007fffff
)

// DecodeCompact expands bits into a full-width target. negative reports a set
// sign flag on a non-zero mantissa and overflow reports a value wider than
// 256 bits; in both cases the returned target must not be used for validation.
func DecodeCompact(bits uint32) (t uint256.Int, negative, overflow bool) {
	size := bits >> 24
	word := bits & mantissaMask
	if size <= 3 {
		word >>= 8 * (3 - size)
		t.SetUint64(uint64(word))
	} else {
		t.SetUint64(uint64(word))
		t.Lsh(&t, uint(8*(size-3)))
	}
	negative = word != 0 && bits&signBit != 0
	overflow = word != 0 && (size > 34 ||
		(word > 0xff && size > 33) ||
		(word > 0xffff && size > 32))
	return t, negative, overflow
}

// EncodeCompact packs t into compact form, truncating digits beyond the
// 23-bit mantissa. The sign flag is never set.
func EncodeCompact(t *uint256.Int) uint32 {
	size := uint32((t.BitLen() + 7) / 8)
	var mantissa uint32
	if size <= 3 {
		mantissa = uint32(t.Uint64() << (8 * (3 - size)))
	} else {
		var shifted uint256.Int
		shifted.Rsh(t, uint(8*(size-3)))
		mantissa = uint32(shifted.Uint64())
	}
	// A set high bit would read back as negative; move it into the exponent.
	if mantissa&signBit != 0 {
		mantissa >>= 8
		size++
	}
	return mantissa | size<<24
}

// FromHash interprets a block hash as an unsigned 256-bit integer. Hash bytes
// are stored least significant first.
func FromHash(hash chainhash.Hash) uint256.Int {
	var t uint256.Int
	t.SetFromBig(blockchain.HashToBig(&hash))
	return t
}
