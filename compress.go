package blake3

import "encoding/binary"

// msgSchedule[r] lists, for round r, which message word feeds each of the
// sixteen g-function inputs. Round 0 is the identity; every later round
// applies the fixed BLAKE3 permutation to the previous one.
var msgSchedule = [7][16]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{2, 6, 3, 10, 7, 0, 4, 13, 1, 11, 12, 5, 9, 14, 15, 8},
	{3, 4, 10, 12, 13, 2, 7, 14, 6, 5, 9, 0, 11, 15, 8, 1},
	{10, 7, 12, 9, 14, 3, 13, 15, 4, 0, 11, 2, 5, 8, 1, 6},
	{12, 13, 9, 11, 15, 10, 14, 8, 7, 2, 5, 3, 0, 1, 6, 4},
	{9, 14, 11, 5, 8, 12, 15, 1, 13, 3, 0, 10, 2, 6, 4, 7},
	{11, 15, 5, 0, 1, 9, 8, 6, 14, 10, 2, 12, 3, 4, 7, 13},
}

// g is the quarter-round mixing function.
func g(s *[16]uint32, a, b, c, d int, x, y uint32) {
	s[a] = s[a] + s[b] + x
	s[d] = rotr(s[d]^s[a], 16)
	s[c] = s[c] + s[d]
	s[b] = rotr(s[b]^s[c], 12)
	s[a] = s[a] + s[b] + y
	s[d] = rotr(s[d]^s[a], 8)
	s[c] = s[c] + s[d]
	s[b] = rotr(s[b]^s[c], 7)
}

func rotr(x uint32, n uint) uint32 {
	return x>>n | x<<(32-n)
}

// compress is the portable compression primitive. It transforms one
// 64-byte block against an 8-word chaining value and returns the full
// 16-word state: the first 8 words are the new chaining value, all 16
// form the extended (XOF) output.
func compress(cv *[8]uint32, block *[16]uint32, counter uint64, blockLen uint32, flags uint32) [16]uint32 {
	s := [16]uint32{
		cv[0], cv[1], cv[2], cv[3], cv[4], cv[5], cv[6], cv[7],
		iv[0], iv[1], iv[2], iv[3],
		counterLow(counter), counterHigh(counter), blockLen, flags,
	}

	for r := 0; r < 7; r++ {
		m := &msgSchedule[r]
		g(&s, 0, 4, 8, 12, block[m[0]], block[m[1]])
		g(&s, 1, 5, 9, 13, block[m[2]], block[m[3]])
		g(&s, 2, 6, 10, 14, block[m[4]], block[m[5]])
		g(&s, 3, 7, 11, 15, block[m[6]], block[m[7]])
		g(&s, 0, 5, 10, 15, block[m[8]], block[m[9]])
		g(&s, 1, 6, 11, 12, block[m[10]], block[m[11]])
		g(&s, 2, 7, 8, 13, block[m[12]], block[m[13]])
		g(&s, 3, 4, 9, 14, block[m[14]], block[m[15]])
	}

	for i := 0; i < 8; i++ {
		s[i] ^= s[i+8]
		s[i+8] ^= cv[i]
	}
	return s
}

// compressXOF runs compress and serializes all 16 output words as the
// next 64 bytes of the extended output stream.
func compressXOF(cv *[8]uint32, block *[16]uint32, counter uint64, blockLen uint32, flags uint32, out *[BlockLen]byte) {
	words := compress(cv, block, counter, blockLen, flags)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
}

func first8Words(words [16]uint32) (cv [8]uint32) {
	copy(cv[:], words[:8])
	return cv
}

// loadBlockWords reads a 64-byte block as 16 little-endian words.
func loadBlockWords(src []byte, dst *[16]uint32) {
	_ = src[BlockLen-1]
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[4*i:])
	}
}

func keyWordsFromBytes(key *[KeyLen]byte) (words [8]uint32) {
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	return words
}

func cvBytesFromWords(cv *[8]uint32) (b [OutLen]byte) {
	for i, w := range cv {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}
