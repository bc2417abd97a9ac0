package miner

import (
	"math"

	"github.com/iotaledger/iota.go/signing"
	"github.com/iotaledger/iota.go/trinary"
)

const (
	// NormalizedFragmentTrytes ...
	NormalizedFragmentTrytes = 27

	maxNormalizedValue = 13
	tryteRadix         = 27
)

// MaxNormalized returns, for every position, the highest normalized value
// among the given bundle hashes.
func MaxNormalized(hashes []trinary.Trytes) []int8 {
	var max []int8
	for _, hash := range hashes {
		normalized := signing.NormalizedBundleHash(hash)
		if max == nil {
			max = append([]int8{}, normalized...)
			continue
		}
		for i, v := range normalized {
			if v > max[i] {
				max[i] = v
			}
		}
	}
	return max
}

// Crackability returns the probability for an attacker, knowing the
// signatures of every known hash and of the candidate, to forge a signature
// over a random hash, restricted to the first securityLevel*27 positions.
//
// A candidate that never exceeds the known values has the same
// crackability of the known set alone.
func Crackability(known, candidate []int8, securityLevel int) float64 {
	p := 1.0
	n := securityLevel * NormalizedFragmentTrytes
	for i := 0; i < n && i < len(known); i++ {
		v := known[i]
		if i < len(candidate) && candidate[i] > v {
			v = candidate[i]
		}
		p *= float64(int(v)+maxNormalizedValue+1) / tryteRadix
	}
	return p
}

// SecurityBits converts a crackability into bits of security.
func SecurityBits(crackability float64) float64 {
	if crackability <= 0 {
		return math.Inf(1)
	}
	return -math.Log2(crackability)
}
