package blake3

const (
	// BlockLen is the compression function block size in bytes.
	BlockLen = 64
	// ChunkLen is the chunk size in bytes: 16 blocks. Each chunk is hashed
	// independently before the results are combined into a Merkle tree.
	ChunkLen = 1024
	// KeyLen is the key size for the keyed hashing mode.
	KeyLen = 32
	// OutLen is the default digest size.
	OutLen = 32

	// maxStackDepth bounds the chaining value stack. 54 entries cover
	// 2^54 chunks, i.e. the full 2^64-byte input space.
	maxStackDepth = 54

	// universalHashLen is the size of the tag produced by universalHash.
	universalHashLen = 16
)

// Domain separation flags, attached to every compression call.
const (
	flagChunkStart        uint32 = 1 << 0
	flagChunkEnd          uint32 = 1 << 1
	flagParent            uint32 = 1 << 2
	flagRoot              uint32 = 1 << 3
	flagKeyedHash         uint32 = 1 << 4
	flagDeriveKeyContext  uint32 = 1 << 5
	flagDeriveKeyMaterial uint32 = 1 << 6
)

// iv is the BLAKE3 initialization constant, shared with SHA-256.
var iv = [8]uint32{
	0x6A09E667, 0xBB67AE85, 0x3C6EF372, 0xA54FF53A,
	0x510E527F, 0x9B05688C, 0x1F83D9AB, 0x5BE0CD19,
}

// The 64-bit chunk counter is passed to the compression function as two
// 32-bit words, so that 32-bit lanes can carry the low word independently
// of the high word.

func counterLow(counter uint64) uint32 { return uint32(counter) }

func counterHigh(counter uint64) uint32 { return uint32(counter >> 32) }
