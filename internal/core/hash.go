package core

import "fmt"

// DeterministicHash returns a 32-bit hash of s that is stable across runs and
// platforms. It walks the string as UTF-16 code units in two interleaved DJB2
// lanes, even indices in the first and odd in the second.
func DeterministicHash(s string) int32 {
	units := utf16Units(s)

	hash1 := int32((5381 << 16) + 5381)
	hash2 := hash1

	for i := 0; i < len(units); i += 2 {
		hash1 = ((hash1 << 5) + hash1) ^ int32(units[i])
		if i == len(units)-1 {
			break
		}
		hash2 = ((hash2 << 5) + hash2) ^ int32(units[i+1])
	}

	return hash1 + hash2*1566083941
}

// URLKey returns a short stable key naming the cache entry for a URL
func URLKey(url string) string {
	return fmt.Sprintf("%08x", uint32(DeterministicHash(url)))
}

func utf16Units(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x10000:
			units = append(units, uint16(r))
		default:
			r -= 0x10000
			units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
		}
	}
	return units
}
