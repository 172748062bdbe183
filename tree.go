package blake3

import (
	"math/bits"
	"sync"
)

// spawnThreshold is the smallest subtree worth a goroutine of its own.
const spawnThreshold = 64 * ChunkLen

// largestPowerOfTwoLeq returns the largest power of two less than or
// equal to n. It returns 1 for n < 2.
func largestPowerOfTwoLeq(n int) int {
	return 1 << (bits.Len(uint(n|1)) - 1)
}

// leftLen returns the byte length of the left subtree for an input of
// contentLen bytes, contentLen > ChunkLen: the largest power-of-two
// chunk count strictly less than the total, in bytes. Subtracting one
// byte first keeps the right side non-empty when the total is itself a
// chunk-aligned power of two.
func leftLen(contentLen int) int {
	fullChunks := (contentLen - 1) / ChunkLen
	return largestPowerOfTwoLeq(fullChunks) * ChunkLen
}

// driverDegree is the batching degree the subtree driver runs at. A
// degree below two would let a subtree collapse to a single chaining
// value before finalization, which is the root's job alone.
func driverDegree(p platform) int {
	d := p.degree
	if d < 2 {
		d = 2
	}
	if d&(d-1) != 0 {
		panic("blake3: SIMD degree must be a power of two")
	}
	return d
}

// hashSubtree hashes a chunk-aligned subtree of input into successive
// columns of out starting at outColumn, returning the number of
// chaining values written (at most d). counter is the index of the
// subtree's first chunk. When concurrent is set, the two recursive
// halves run on separate goroutines; they touch disjoint input ranges
// and disjoint output columns, so no locking is involved. d only sets
// the batching granularity, never the tree shape.
func hashSubtree(p platform, input []byte, d int, key *[8]uint32, counter uint64, flags uint32, out *transposedVectors, outColumn int, concurrent bool) int {
	if len(input) == 0 || len(input)%ChunkLen != 0 {
		panic("blake3: subtree input must be whole chunks")
	}
	if len(input) <= d*ChunkLen {
		return p.hashChunks(input, key, counter, flags, out, outColumn)
	}

	// The left side is always a full power-of-two subtree, so it always
	// reduces to exactly d chaining values; the right side starts
	// writing at that column without waiting for the left to finish.
	split := leftLen(len(input))
	left, right := input[:split], input[split:]
	rightCounter := counter + uint64(split/ChunkLen)

	var child transposedVectors
	var leftN, rightN int
	if concurrent && len(right) >= spawnThreshold {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			leftN = hashSubtree(p, left, d, key, counter, flags, &child, 0, concurrent)
		}()
		rightN = hashSubtree(p, right, d, key, rightCounter, flags, &child, d, concurrent)
		wg.Wait()
	} else {
		leftN = hashSubtree(p, left, d, key, counter, flags, &child, 0, concurrent)
		rightN = hashSubtree(p, right, d, key, rightCounter, flags, &child, d, concurrent)
	}
	if leftN != d {
		panic("blake3: left subtree did not fill all lanes")
	}

	children := leftN + rightN
	p.hashParents(parentsSeparate(&child, children/2, out, outColumn), key, flags|flagParent)
	n := children / 2
	if children%2 == 1 {
		// An odd child has no sibling yet; it carries through to the
		// output unmodified.
		cv := child.cv(children - 1)
		out.setCV(outColumn+n, &cv)
		n++
	}
	return n
}

// reduceParents combines adjacent pairs in place, carrying an odd
// leftover through, and returns the new count.
func reduceParents(p platform, cvs *transposedVectors, n int, key *[8]uint32, flags uint32) int {
	p.hashParents(parentsInPlace(cvs, n/2), key, flags|flagParent)
	if n%2 == 1 {
		cv := cvs.cv(n - 1)
		cvs.setCV(n/2, &cv)
		return n/2 + 1
	}
	return n / 2
}

// compressSubtreeToParentPair reduces a multi-chunk, chunk-aligned,
// power-of-two subtree to the chaining values of its two children, for
// the incremental hasher to push onto its stack. The final merge is
// deliberately left undone: only finalization knows whether it is the
// root.
func compressSubtreeToParentPair(p platform, input []byte, key *[8]uint32, counter uint64, flags uint32, concurrent bool) (left, right [8]uint32) {
	d := driverDegree(p)
	var cvs transposedVectors
	n := hashSubtree(p, input, d, key, counter, flags, &cvs, 0, concurrent)
	for n > 2 {
		n = reduceParents(p, &cvs, n, key, flags)
	}
	return cvs.cv(0), cvs.cv(1)
}

// rootHashTree hashes a chunk-aligned input of at least two chunks
// through the subtree driver: reduce to two chaining values, then one
// final parent compression carrying the root flag.
func rootHashTree(p platform, input []byte, key *[8]uint32, flags uint32, concurrent bool, out []byte) {
	if len(input) < 2*ChunkLen || len(input)%ChunkLen != 0 {
		panic("blake3: tree root path needs at least two whole chunks")
	}
	d := driverDegree(p)
	var cvs transposedVectors
	n := hashSubtree(p, input, d, key, 0, flags, &cvs, 0, concurrent)
	for n > 2 {
		n = reduceParents(p, &cvs, n, key, flags)
	}
	left, right := cvs.cv(0), cvs.cv(1)
	o := parentOutput(&left, &right, key, flags, p)
	o.rootBytes(out)
}
