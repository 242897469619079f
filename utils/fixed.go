package utils

// Fixed point numbers in DS formats are described as sign.integer.fraction
// bit counts, eg. 1.19.12 for a signed 32-bit coordinate with 12
// fractional bits.

func Fix32(x uint32, sign bool, intBits, fracBits uint) float32 {
	totalBits := intBits + fracBits
	if sign {
		totalBits++
	}
	x &= (1 << totalBits) - 1

	var v float64
	if sign && x&(1<<(totalBits-1)) != 0 {
		v = float64(int64(x) - (1 << totalBits))
	} else {
		v = float64(x)
	}
	return float32(v / float64(int64(1)<<fracBits))
}

func Fix16(x uint16, sign bool, intBits, fracBits uint) float32 {
	return Fix32(uint32(x), sign, intBits, fracBits)
}

// Bits extracts bits [lo, hi) of x.
func Bits(x uint32, lo, hi uint) uint32 {
	return (x >> lo) & ((1 << (hi - lo)) - 1)
}

func Bits16(x uint16, lo, hi uint) uint16 {
	return uint16(Bits(uint32(x), lo, hi))
}
