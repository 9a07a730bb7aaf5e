package bitmap

import "math/bits"

// BitMap is the bit view of a string value, bit 0 is the most significant bit of the first byte
type BitMap []byte

// New creates an empty BitMap
func New() *BitMap {
	b := BitMap(make([]byte, 0))
	return &b
}

func toByteSize(bitSize int64) int64 {
	if bitSize%8 == 0 {
		return bitSize / 8
	}
	return bitSize/8 + 1
}

func (b *BitMap) grow(bitSize int64) {
	gap := toByteSize(bitSize) - int64(len(*b))
	if gap <= 0 {
		return
	}
	*b = append(*b, make([]byte, gap)...)
}

// BitSize returns the number of addressable bits
func (b *BitMap) BitSize() int {
	return len(*b) * 8
}

// FromBytes wraps bytes without copying
func FromBytes(bytes []byte) *BitMap {
	bm := BitMap(bytes)
	return &bm
}

// ToBytes returns the underlying bytes
func (b *BitMap) ToBytes() []byte {
	return *b
}

// SetBit sets the bit at offset and returns its previous value, the bitmap grows as needed
func (b *BitMap) SetBit(offset int64, val byte) byte {
	b.grow(offset + 1)
	byteIndex := offset / 8
	mask := byte(0x80 >> uint(offset%8))
	old := byte(0)
	if (*b)[byteIndex]&mask != 0 {
		old = 1
	}
	if val > 0 {
		(*b)[byteIndex] |= mask
	} else {
		(*b)[byteIndex] &^= mask
	}
	return old
}

// GetBit returns the bit at offset, bits beyond the end are 0
func (b *BitMap) GetBit(offset int64) byte {
	byteIndex := offset / 8
	if byteIndex >= int64(len(*b)) {
		return 0
	}
	return ((*b)[byteIndex] >> (7 - uint(offset%8))) & 0x01
}

// normalize converts an inclusive range with negative indexes into [begin, end), ok is false for an empty range
func normalize(begin, end int64, size int64) (int64, int64, bool) {
	if begin < 0 {
		begin += size
	}
	if end < 0 {
		end += size
	}
	if begin < 0 {
		begin = 0
	}
	if end >= size {
		end = size - 1
	}
	if begin > end || size == 0 {
		return 0, 0, false
	}
	return begin, end + 1, true
}

// CountBytes counts set bits within bytes [begin, end], negative indexes count from the end
func (b *BitMap) CountBytes(begin, end int64) int64 {
	from, to, ok := normalize(begin, end, int64(len(*b)))
	if !ok {
		return 0
	}
	var count int64
	for _, v := range (*b)[from:to] {
		count += int64(bits.OnesCount8(v))
	}
	return count
}

// CountBits counts set bits within bits [begin, end], negative indexes count from the end
func (b *BitMap) CountBits(begin, end int64) int64 {
	from, to, ok := normalize(begin, end, int64(b.BitSize()))
	if !ok {
		return 0
	}
	var count int64
	for i := from; i < to; i++ {
		count += int64(b.GetBit(i))
	}
	return count
}

// BitPos returns the position of the first bit equals to bit within bytes [begin, end], -1 if not found.
// If endGiven is false and bit is 0, the bits after the end of the value count as clear
func (b *BitMap) BitPos(bit byte, begin, end int64, endGiven bool) int64 {
	size := int64(len(*b))
	from, to, ok := normalize(begin, end, size)
	if !ok {
		if bit == 0 && !endGiven && size == 0 {
			return 0
		}
		return -1
	}
	for i := from * 8; i < to*8; i++ {
		if b.GetBit(i) == bit {
			return i
		}
	}
	if bit == 0 && !endGiven {
		return to * 8
	}
	return -1
}
