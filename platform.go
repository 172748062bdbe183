package blake3

// maxSIMDDegree is the widest batch width any implementation variant
// advertises: 16 chunk or parent lanes per call.
const maxSIMDDegree = 16

// A platform binds the batch compression routines to the SIMD degree
// selected at startup. The degree controls how many chunks the tree
// driver hands to one hashChunks call and how many parent pairs fit in
// one hashParents call; it never changes the tree shape or the digest.
// Every routine is bit-identical to repeated use of the scalar compress
// primitive, whatever the degree.
type platform struct {
	degree int
}

// defaultPlatform is chosen once, before any hashing happens, and is
// never mutated afterwards.
var defaultPlatform = detectPlatform()

// detectPlatform picks the widest degree the CPU can put to use.
func detectPlatform() platform {
	return platform{degree: detectDegree()}
}

func (p platform) compress(cv *[8]uint32, block *[16]uint32, counter uint64, blockLen uint32, flags uint32) [16]uint32 {
	return compress(cv, block, counter, blockLen, flags)
}

// transposedVectors holds chaining values in transposed order: one row
// per CV word, one column per in-flight chunk or parent lane. The layout
// lets a vectorized implementation touch one row of many lanes with a
// single instruction. Capacity is 2*maxSIMDDegree columns, enough for
// the CVs accumulated from two recursive subtree calls.
type transposedVectors [8][2 * maxSIMDDegree]uint32

func (tv *transposedVectors) cv(col int) (cv [8]uint32) {
	for row := range cv {
		cv[row] = tv[row][col]
	}
	return cv
}

func (tv *transposedVectors) setCV(col int, cv *[8]uint32) {
	for row := range cv {
		tv[row][col] = cv[row]
	}
}

// parentInOut names the buffers for one hashParents call. The two
// constructors keep ownership unambiguous: Separate reads one buffer and
// writes another (with a column offset, for accumulating the results of
// two recursive calls), InPlace combines pairs within a single buffer.
type parentInOut struct {
	in         *transposedVectors
	out        *transposedVectors
	outColumn  int
	numParents int
}

func parentsSeparate(in *transposedVectors, numParents int, out *transposedVectors, outColumn int) parentInOut {
	return parentInOut{in: in, out: out, outColumn: outColumn, numParents: numParents}
}

func parentsInPlace(buf *transposedVectors, numParents int) parentInOut {
	return parentInOut{in: buf, out: buf, numParents: numParents}
}

// incrementCounter selects whether hashMany advances the chunk counter
// after each input. Chunk batches advance it; parent batches never do,
// because parent compressions don't consume chunk indices.
type incrementCounter bool

const (
	counterIncrement   incrementCounter = true
	counterNoIncrement incrementCounter = false
)
