package blake3

// Batch entry points of the platform layer. Each routine is specified as
// an element-for-element match with repeated scalar compress calls; the
// tests hold every implementation variant to that contract.

// hashMany hashes len(inputs) independent inputs, each a whole number of
// 64-byte blocks, and writes one 32-byte chaining value per input to out.
// flagsStart and flagsEnd apply only to each input's first and last
// block. The counter advances per input only when increment says so.
func (p platform) hashMany(inputs [][]byte, key *[8]uint32, counter uint64, increment incrementCounter, flags, flagsStart, flagsEnd uint32, out []byte) {
	if len(out) < len(inputs)*OutLen {
		panic("blake3: hashMany output buffer too small")
	}
	for _, input := range inputs {
		if len(input) == 0 || len(input)%BlockLen != 0 {
			panic("blake3: hashMany input is not a whole number of blocks")
		}
		cv := *key
		blockFlags := flags | flagsStart
		for len(input) > 0 {
			if len(input) == BlockLen {
				blockFlags |= flagsEnd
			}
			var block [16]uint32
			loadBlockWords(input, &block)
			cv = first8Words(compress(&cv, &block, counter, BlockLen, blockFlags))
			input = input[BlockLen:]
			blockFlags = flags
		}
		cvBytes := cvBytesFromWords(&cv)
		copy(out, cvBytes[:])
		out = out[OutLen:]
		if increment == counterIncrement {
			counter++
		}
	}
}

// hashChunks hashes up to degree chunks of input into successive columns
// of out, starting at outColumn, incrementing the counter per chunk. It
// returns the number of chaining values written. A trailing partial
// chunk is allowed only at the very end of the whole input.
func (p platform) hashChunks(input []byte, key *[8]uint32, counter uint64, flags uint32, out *transposedVectors, outColumn int) int {
	n := 0
	for len(input) > 0 {
		end := ChunkLen
		if end > len(input) {
			end = len(input)
		}
		if outColumn+n >= 2*maxSIMDDegree {
			panic("blake3: hashChunks exceeds transposed buffer capacity")
		}
		cv := chunkCV(input[:end], key, counter, flags)
		out.setCV(outColumn+n, &cv)
		input = input[end:]
		counter++
		n++
	}
	return n
}

// chunkCV folds one chunk (possibly short, never absent: an empty chunk
// still compresses one zero-length block) into a chaining value.
func chunkCV(chunk []byte, key *[8]uint32, counter uint64, flags uint32) [8]uint32 {
	cv := *key
	blockFlags := flags | flagChunkStart
	for len(chunk) > BlockLen {
		var block [16]uint32
		loadBlockWords(chunk, &block)
		cv = first8Words(compress(&cv, &block, counter, BlockLen, blockFlags))
		chunk = chunk[BlockLen:]
		blockFlags = flags
	}
	var buf [BlockLen]byte
	blockLen := copy(buf[:], chunk)
	var block [16]uint32
	loadBlockWords(buf[:], &block)
	return first8Words(compress(&cv, &block, counter, uint32(blockLen), blockFlags|flagChunkEnd))
}

// hashParents combines io.numParents adjacent column pairs of io.in into
// single columns of io.out. The caller supplies the full flag set,
// including flagParent (and flagRoot for the final combination). Parent
// compressions never consume a chunk counter.
func (p platform) hashParents(io parentInOut, key *[8]uint32, flags uint32) {
	if io.numParents > maxSIMDDegree {
		panic("blake3: hashParents exceeds maximum degree")
	}
	if io.outColumn+io.numParents > 2*maxSIMDDegree {
		panic("blake3: hashParents exceeds transposed buffer capacity")
	}
	for i := 0; i < io.numParents; i++ {
		left := io.in.cv(2 * i)
		right := io.in.cv(2*i + 1)
		var block [16]uint32
		copy(block[:8], left[:])
		copy(block[8:], right[:])
		cv := first8Words(compress(key, &block, 0, BlockLen, flags))
		io.out.setCV(io.outColumn+i, &cv)
	}
}

// xof writes len(out) bytes of the extended output stream for the given
// root state, starting at the given block counter. The stream is only
// bounded by the 64-bit counter space.
func (p platform) xof(cv *[8]uint32, block *[16]uint32, blockLen uint32, counter uint64, flags uint32, out []byte) {
	var buf [BlockLen]byte
	for len(out) > 0 {
		compressXOF(cv, block, counter, blockLen, flags, &buf)
		n := copy(out, buf[:])
		out = out[n:]
		counter++
	}
}

// xofXOR is xof, except that the stream is XORed into out instead of
// overwriting it. Applying it twice at the same position restores the
// buffer.
func (p platform) xofXOR(cv *[8]uint32, block *[16]uint32, blockLen uint32, counter uint64, flags uint32, out []byte) {
	var buf [BlockLen]byte
	for len(out) > 0 {
		compressXOF(cv, block, counter, blockLen, flags, &buf)
		n := len(out)
		if n > BlockLen {
			n = BlockLen
		}
		for i := 0; i < n; i++ {
			out[i] ^= buf[i]
		}
		out = out[n:]
		counter++
	}
}

// universalHash produces a 16-byte tag by hashing each 64-byte block of
// input as its own single-block keyed chunk, taking the first 16 bytes
// of that block's extended output at the block's counter, and XOR-folding
// the segments together. Empty input still evaluates one zero-length
// block. The XOR fold makes the tag incremental: disjoint ranges can be
// hashed separately (with matching counters) and combined.
func (p platform) universalHash(input []byte, key *[8]uint32, counter uint64) [universalHashLen]byte {
	const tagFlags = flagKeyedHash | flagChunkStart | flagChunkEnd | flagRoot
	var result [universalHashLen]byte
	for first := true; first || len(input) > 0; first = false {
		blockLen := len(input)
		if blockLen > BlockLen {
			blockLen = BlockLen
		}
		var buf [BlockLen]byte
		copy(buf[:], input[:blockLen])
		var block [16]uint32
		loadBlockWords(buf[:], &block)
		var stream [BlockLen]byte
		compressXOF(key, &block, counter, uint32(blockLen), tagFlags, &stream)
		for i := range result {
			result[i] ^= stream[i]
		}
		input = input[blockLen:]
		counter++
	}
	return result
}
