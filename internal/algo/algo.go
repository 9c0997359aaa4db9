// Package algo enumerates the mining algorithms that share the block height sequence.
package algo

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a mining algorithm. The set is a consensus constant.
type ID uint8

const (
	Ghostrider ID = iota
	Yespower
	Lyra2
	SHA256d
	Scrypt
	ButKScrypt
)

// NumAlgos is the number of algorithms taking turns on the chain.
const NumAlgos = 6

const (
	versionAlgoShift = 9
	versionAlgoMask  = 0x7 << versionAlgoShift
)

// ErrUnknown is returned when an algorithm name or id is not part of the set.
var ErrUnknown = errors.New("unknown algorithm")

var names = [NumAlgos]string{
	Ghostrider: "ghostrider",
	Yespower:   "yespower",
	Lyra2:      "lyra2z330",
	SHA256d:    "sha256d",
	Scrypt:     "scrypt",
	ButKScrypt: "butkscrypt",
}

// All returns every algorithm in id order.
func All() []ID {
	ids := make([]ID, NumAlgos)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Valid reports whether id is one of the known algorithms.
func (id ID) Valid() bool {
	return id < NumAlgos
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("algo(%d)", uint8(id))
	}
	return names[id]
}

// Version returns the block version bits that carry id.
func (id ID) Version() int32 {
	return int32(id) << versionAlgoShift
}

// FromVersion extracts the algorithm from block version bits 9-11.
// The result may be invalid for malformed versions; check Valid.
func FromVersion(version int32) ID {
	return ID((version & versionAlgoMask) >> versionAlgoShift)
}

// Parse resolves an algorithm by its name, ignoring case.
func Parse(name string) (ID, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == needle {
			return ID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}
