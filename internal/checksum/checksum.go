// Package checksum implements the CRC-32 checksum recorded in archive headers.
//
// The checksum is CRC-32/ISO-HDLC: the reflected polynomial 0xEDB88320 with
// the accumulator inverted on entry and exit. It matches the value produced
// by every ZIP implementation.
package checksum

// poly is the reflected ISO-HDLC polynomial.
const poly uint32 = 0xEDB88320

// table holds the byte-indexed remainders, reduced once at startup.
var table [256]uint32

func init() {
	for i := range table {
		crc := uint32(i)
		for range 8 {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
}

// Update folds p into the running checksum crc and returns the new value.
//
// The accumulator for an empty stream is zero. Folding a stream chunk by
// chunk, in order, yields the same value as a single call over the
// concatenated bytes.
func Update(crc uint32, p []byte) uint32 {
	crc = ^crc
	for _, b := range p {
		crc = table[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// Sum returns the checksum of p.
func Sum(p []byte) uint32 {
	return Update(0, p)
}
