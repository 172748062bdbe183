// Package blake3 provides BLAKE3 hashing with batched tree compression
// and optional fork-join parallelism.
//
// BLAKE3 hashes input in 1024-byte chunks and combines the results into
// a Merkle tree, which makes it incrementally updatable and parallel by
// construction. This package implements the full construction: the
// streaming chunk state, the logarithmic chaining-value stack, a
// platform layer that batches chunk and parent compressions at the SIMD
// width detected at startup, a recursive subtree driver that can hash
// disjoint input ranges on separate goroutines, and a seekable
// extendable-output (XOF) reader. All three keying modes (plain, keyed,
// key derivation) are supported, and every code path produces output
// byte-for-byte identical to the reference implementation.
package blake3

import (
	"errors"
	"hash"
	"io"
	"math/bits"
)

// output is the terminal state of a chunk or of the whole tree: the
// inputs of its final compression, held uncompressed so that the same
// node can be squeezed for any number of extended-output bytes.
type output struct {
	inputCV  [8]uint32
	block    [16]uint32
	blockLen uint32
	counter  uint64
	flags    uint32
	p        platform
}

func (o *output) chainingValue() [8]uint32 {
	return first8Words(o.p.compress(&o.inputCV, &o.block, o.counter, o.blockLen, o.flags))
}

// rootBytes writes the first len(out) bytes of the root output stream.
func (o *output) rootBytes(out []byte) {
	r := OutputReader{inner: *o}
	r.fill(out)
}

func parentOutput(left, right *[8]uint32, key *[8]uint32, flags uint32, p platform) output {
	var block [16]uint32
	copy(block[:8], left[:])
	copy(block[8:], right[:])
	return output{
		inputCV:  *key,
		block:    block,
		blockLen: BlockLen,
		counter:  0,
		flags:    flags | flagParent,
		p:        p,
	}
}

func parentCV(left, right *[8]uint32, key *[8]uint32, flags uint32, p platform) [8]uint32 {
	o := parentOutput(left, right, key, flags, p)
	return o.chainingValue()
}

// chunkState buffers up to one chunk of input and folds it into a
// running chaining value block by block. A full buffered block is only
// compressed once a later byte arrives, because the last block of a
// chunk needs flagChunkEnd and its exact length.
type chunkState struct {
	cv               [8]uint32
	chunkCounter     uint64
	buf              [BlockLen]byte
	bufLen           uint8
	blocksCompressed uint8
	flags            uint32
	p                platform
}

func newChunkState(key *[8]uint32, chunkCounter uint64, flags uint32, p platform) chunkState {
	return chunkState{
		cv:           *key,
		chunkCounter: chunkCounter,
		flags:        flags,
		p:            p,
	}
}

func (c *chunkState) len() int {
	return BlockLen*int(c.blocksCompressed) + int(c.bufLen)
}

func (c *chunkState) startFlag() uint32 {
	if c.blocksCompressed == 0 {
		return flagChunkStart
	}
	return 0
}

func (c *chunkState) update(input []byte) {
	for len(input) > 0 {
		if c.bufLen == BlockLen {
			var block [16]uint32
			loadBlockWords(c.buf[:], &block)
			c.cv = first8Words(c.p.compress(&c.cv, &block, c.chunkCounter, BlockLen, c.flags|c.startFlag()))
			c.blocksCompressed++
			c.buf = [BlockLen]byte{}
			c.bufLen = 0
		}
		n := copy(c.buf[c.bufLen:], input)
		c.bufLen += uint8(n)
		input = input[n:]
	}
}

// output finalizes the buffered block. For an empty input this is a
// zero-length block carrying both flagChunkStart and flagChunkEnd; there
// is no zero-compression chunk.
func (c *chunkState) output() output {
	var block [16]uint32
	loadBlockWords(c.buf[:], &block)
	return output{
		inputCV:  c.cv,
		block:    block,
		blockLen: uint32(c.bufLen),
		counter:  c.chunkCounter,
		flags:    c.flags | c.startFlag() | flagChunkEnd,
		p:        c.p,
	}
}

// Hasher is a streaming BLAKE3 hasher with extendable output. The zero
// value is not usable; construct one with New, NewKeyed or NewDeriveKey.
type Hasher struct {
	chunk    chunkState
	key      [8]uint32
	flags    uint32
	p        platform
	stack    [maxStackDepth + 1][8]uint32
	stackLen int
}

var _ hash.Hash = (*Hasher)(nil)

func newHasher(key [8]uint32, flags uint32) *Hasher {
	p := defaultPlatform
	return &Hasher{
		chunk: newChunkState(&key, 0, flags, p),
		key:   key,
		flags: flags,
		p:     p,
	}
}

// New constructs a hasher for the standard hash function.
func New() *Hasher {
	return newHasher(iv, 0)
}

// NewKeyed constructs a hasher for the keyed hash function. The 32-byte
// key replaces the standard initialization constant.
func NewKeyed(key [KeyLen]byte) *Hasher {
	return newHasher(keyWordsFromBytes(&key), flagKeyedHash)
}

// NewDeriveKey constructs a hasher for the key derivation function. The
// context string is hashed first, in its own domain, to produce a
// context key; the returned hasher consumes key material under that key.
// Context strings should be hardcoded, globally unique, and
// application-specific.
func NewDeriveKey(context string) *Hasher {
	ch := newHasher(iv, flagDeriveKeyContext)
	ch.update([]byte(context), false)
	var contextKey [KeyLen]byte
	ch.Finalize(contextKey[:])
	return newHasher(keyWordsFromBytes(&contextKey), flagDeriveKeyMaterial)
}

func (h *Hasher) pushStack(cv [8]uint32) {
	if h.stackLen >= len(h.stack) {
		panic("blake3: chaining value stack overflow")
	}
	h.stack[h.stackLen] = cv
	h.stackLen++
}

func (h *Hasher) popStack() [8]uint32 {
	h.stackLen--
	return h.stack[h.stackLen]
}

// mergeStack combines the two topmost subtrees until the stack holds
// exactly one chaining value per set bit of totalChunks. Merging is
// lazy: the final combinations are left for finalization, which is the
// only place the root flag may be applied.
func (h *Hasher) mergeStack(totalChunks uint64) {
	post := bits.OnesCount64(totalChunks)
	for h.stackLen > post {
		right := h.popStack()
		left := h.popStack()
		h.pushStack(parentCV(&left, &right, &h.key, h.flags, h.p))
	}
}

// pushCV appends the chaining value of a completed chunk or subtree.
// chunkCounter is the index of the first chunk the value covers.
func (h *Hasher) pushCV(cv [8]uint32, chunkCounter uint64) {
	h.mergeStack(chunkCounter)
	h.pushStack(cv)
}

// Write absorbs input. It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	h.update(p, false)
	return len(p), nil
}

// WriteParallel absorbs input like Write, but hashes large subtrees on
// multiple goroutines. The resulting digest is identical.
func (h *Hasher) WriteParallel(p []byte) (int, error) {
	h.update(p, true)
	return len(p), nil
}

func (h *Hasher) update(input []byte, concurrent bool) {
	// Finish the buffered chunk first, but only once input beyond it
	// arrives: the last chunk must stay in the chunk state so that
	// finalization can flag it.
	if l := h.chunk.len(); l > 0 {
		want := ChunkLen - l
		if want > len(input) {
			want = len(input)
		}
		h.chunk.update(input[:want])
		input = input[want:]
		if len(input) == 0 {
			return
		}
		o := h.chunk.output()
		h.pushCV(o.chainingValue(), h.chunk.chunkCounter)
		h.chunk = newChunkState(&h.key, h.chunk.chunkCounter+1, h.flags, h.p)
	}

	// Hash the largest chunk-aligned subtrees the counter position
	// allows, always holding back at least one byte for the final chunk.
	for len(input) > ChunkLen {
		subtreeLen := largestPowerOfTwoLeq(len(input))
		countSoFar := h.chunk.chunkCounter * ChunkLen
		for uint64(subtreeLen-1)&countSoFar != 0 {
			subtreeLen /= 2
		}
		subtreeChunks := uint64(subtreeLen / ChunkLen)
		if subtreeLen <= ChunkLen {
			cs := newChunkState(&h.key, h.chunk.chunkCounter, h.flags, h.p)
			cs.update(input[:subtreeLen])
			o := cs.output()
			h.pushCV(o.chainingValue(), cs.chunkCounter)
		} else {
			// A completed subtree is pushed as its two child chaining
			// values rather than one merged value, so that the final
			// merge (the one that takes the root flag) always happens
			// during finalization.
			left, right := compressSubtreeToParentPair(h.p, input[:subtreeLen], &h.key, h.chunk.chunkCounter, h.flags, concurrent)
			h.pushCV(left, h.chunk.chunkCounter)
			h.pushCV(right, h.chunk.chunkCounter+subtreeChunks/2)
		}
		h.chunk.chunkCounter += subtreeChunks
		input = input[subtreeLen:]
	}

	if len(input) > 0 {
		h.chunk.update(input)
		// Bytes are now buffered past the completed chunks, so none of
		// the stack entries can be the root anymore; merge the stack
		// down to one entry per set bit of the chunk counter.
		h.mergeStack(h.chunk.chunkCounter)
	}
}

// finalOutput reduces the chaining value stack to the single node whose
// compression, with the root flag, yields the digest. The two topmost
// entries always combine first; since older entries cover larger
// subtrees, this equals a left-to-right fold.
func (h *Hasher) finalOutput() output {
	if h.stackLen == 0 {
		return h.chunk.output()
	}
	var o output
	remaining := h.stackLen
	if h.chunk.len() > 0 {
		o = h.chunk.output()
	} else {
		// Input ended exactly on a subtree boundary; the stack holds at
		// least the two chaining values of that subtree.
		o = parentOutput(&h.stack[remaining-2], &h.stack[remaining-1], &h.key, h.flags, h.p)
		remaining -= 2
	}
	for remaining > 0 {
		remaining--
		cv := o.chainingValue()
		o = parentOutput(&h.stack[remaining], &cv, &h.key, h.flags, h.p)
	}
	return o
}

// Finalize writes any number of output bytes into out. It does not
// modify the hasher, so it can be called repeatedly and interleaved
// with further writes.
func (h *Hasher) Finalize(out []byte) {
	o := h.finalOutput()
	o.rootBytes(out)
}

// Sum appends the 32-byte digest to b and returns the resulting slice.
func (h *Hasher) Sum(b []byte) []byte {
	var out [OutLen]byte
	h.Finalize(out[:])
	return append(b, out[:]...)
}

// Sum256 returns the 32-byte digest of the input written so far.
func (h *Hasher) Sum256() Hash {
	var out Hash
	h.Finalize(out[:])
	return out
}

// XOF returns a seekable reader over the extended output stream. The
// hasher can keep absorbing input afterwards; the reader is a snapshot.
func (h *Hasher) XOF() *OutputReader {
	return &OutputReader{inner: h.finalOutput()}
}

// Reset clears all absorbed input, keeping the key and mode.
func (h *Hasher) Reset() {
	h.chunk = newChunkState(&h.key, 0, h.flags, h.p)
	h.stackLen = 0
}

// Size returns the default digest size, 32 bytes.
func (h *Hasher) Size() int { return OutLen }

// BlockSize returns the block size of the compression function.
func (h *Hasher) BlockSize() int { return BlockLen }

// OutputReader is a cursor over the unbounded extended output stream of
// a finalized hash. It is not safe for concurrent use.
type OutputReader struct {
	inner output
	off   uint64
}

// errOutOfRange reports a seek outside the representable output stream.
var errOutOfRange = errors.New("blake3: seek position out of range")

func (r *OutputReader) fill(out []byte) {
	o := &r.inner
	flags := o.flags | flagRoot
	// Partial leading block.
	if within := int(r.off % BlockLen); within != 0 && len(out) > 0 {
		var buf [BlockLen]byte
		compressXOF(&o.inputCV, &o.block, r.off/BlockLen, o.blockLen, flags, &buf)
		n := copy(out, buf[within:])
		out = out[n:]
		r.off += uint64(n)
	}
	if len(out) == 0 {
		return
	}
	o.p.xof(&o.inputCV, &o.block, o.blockLen, r.off/BlockLen, flags, out)
	r.off += uint64(len(out))
}

// Read fills p with the next output bytes. It always succeeds: the
// stream has no end within the 64-bit counter space.
func (r *OutputReader) Read(p []byte) (int, error) {
	r.fill(p)
	return len(p), nil
}

// Seek repositions the stream. Skipped bytes are never materialized:
// the counter jumps straight to offset/64. Seeking relative to the end
// fails, as do positions outside [0, 2^64).
func (r *OutputReader) Seek(offset int64, whence int) (int64, error) {
	off := r.off
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, errOutOfRange
		}
		off = uint64(offset)
	case io.SeekCurrent:
		if offset < 0 && uint64(-offset) > off {
			return 0, errOutOfRange
		}
		off += uint64(offset)
	case io.SeekEnd:
		return 0, errors.New("blake3: output stream has no end")
	default:
		return 0, errors.New("blake3: invalid seek whence")
	}
	if off >= uint64(1)<<63 {
		// Beyond int64 the position can no longer be reported.
		return 0, errOutOfRange
	}
	r.off = off
	return int64(off), nil
}

var _ io.ReadSeeker = (*OutputReader)(nil)

// Sum256 returns the 32-byte BLAKE3 digest of data.
func Sum256(data []byte) Hash {
	var out Hash
	Sum(data, out[:])
	return out
}

// Sum writes len(out) bytes of BLAKE3 output of data into out. The
// digest and the extended output are the same stream: Sum256 is simply
// its first 32 bytes.
func Sum(data []byte, out []byte) {
	sumInternal(data, out, false)
}

// SumParallel is Sum, hashing large inputs on multiple goroutines.
func SumParallel(data []byte, out []byte) {
	sumInternal(data, out, true)
}

func sumInternal(data []byte, out []byte, concurrent bool) {
	// Chunk-aligned multi-chunk inputs can skip the streaming state
	// machine and go straight through the subtree driver.
	if len(data) >= 2*ChunkLen && len(data)%ChunkLen == 0 {
		rootHashTree(defaultPlatform, data, &iv, 0, concurrent, out)
		return
	}
	h := New()
	h.update(data, concurrent)
	h.Finalize(out)
}

// SumKeyed returns the 32-byte keyed BLAKE3 digest of data.
func SumKeyed(key [KeyLen]byte, data []byte) Hash {
	h := NewKeyed(key)
	h.update(data, false)
	return h.Sum256()
}

// DeriveKey derives len(out) bytes of key material for the given
// context string.
func DeriveKey(context string, material []byte, out []byte) {
	h := NewDeriveKey(context)
	h.update(material, false)
	h.Finalize(out)
}
