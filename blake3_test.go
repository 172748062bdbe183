package blake3

import (
	"bytes"
	"fmt"
	"testing"

	ref "lukechampine.com/blake3"
)

// Interesting input lengths: around block and chunk boundaries, multiple
// chunks with and without a trailing byte, and subtrees larger than the
// widest batch.
var testCases = []int{
	0, 1, 2, 3, 4, 5, 6, 7, 8,
	BlockLen - 1, BlockLen, BlockLen + 1,
	2*BlockLen - 1, 2 * BlockLen, 2*BlockLen + 1,
	ChunkLen - 1, ChunkLen, ChunkLen + 1,
	2 * ChunkLen, 2*ChunkLen + 1,
	3 * ChunkLen, 3*ChunkLen + 1,
	4 * ChunkLen, 4*ChunkLen + 1,
	5 * ChunkLen, 5*ChunkLen + 1,
	6 * ChunkLen, 6*ChunkLen + 1,
	7 * ChunkLen, 7*ChunkLen + 1,
	8 * ChunkLen, 8*ChunkLen + 1,
	16 * ChunkLen,
	31 * ChunkLen, // 16 + 8 + 4 + 2 + 1
	100 * ChunkLen,
}

const testCasesMax = 100 * ChunkLen

// testKey is exactly 32 bytes.
var testKey = [KeyLen]byte([]byte("whats the Elvish word for friend"))

const testContext = "faster_blake3 2026-08-30 12:00:00 test context"

// Counters worth testing: zero, a value whose low word is about to go
// negative as an int32, and one whose low word overflows immediately.
var initialCounters = []uint64{0, 1<<31 - 1, 1<<32 - 1}

// paintInput fills buf with a byte pattern of cycle length 251, the
// largest prime below 256, so that swapping any two blocks or chunks
// changes the digest.
func paintInput(buf []byte) {
	for i := range buf {
		buf[i] = byte(i % 251)
	}
}

func refSum(input []byte, outLen int) []byte {
	h := ref.New(outLen, nil)
	h.Write(input)
	return h.Sum(nil)
}

func refSumKeyed(key [KeyLen]byte, input []byte, outLen int) []byte {
	h := ref.New(outLen, key[:])
	h.Write(input)
	return h.Sum(nil)
}

func refDeriveKey(context string, material []byte, outLen int) []byte {
	out := make([]byte, outLen)
	ref.DeriveKey(out, context, material)
	return out
}

func TestSum256Empty(t *testing.T) {
	// Known BLAKE3 digest of the empty input: one compression of a
	// zero-length block, never zero compressions.
	want, _ := ParseHash("af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262")
	if got := Sum256(nil); got != want {
		t.Fatalf("Sum256(nil) = %s, want %s", got, want)
	}
}

func TestSum256Foo(t *testing.T) {
	want, _ := ParseHash("04e0bb39f30b1a3feb89f536c93be15055482df748674b00d26e5a75777702e9")
	if got := Sum256([]byte("foo")); got != want {
		t.Fatalf("Sum256(foo) = %s, want %s", got, want)
	}
}

func TestSum256TwoBlocks(t *testing.T) {
	// 65 bytes of 0xff: two blocks within one chunk.
	input := make([]byte, 65)
	for i := range input {
		input[i] = 0xff
	}
	want, _ := ParseHash("b7eb32d99c18bedb02d8b0ffe0351c5f3994b3f5a25a2579008edb3eeacce1a1")
	if got := Sum256(input); got != want {
		t.Fatalf("Sum256(0xff x65) = %s, want %s", got, want)
	}
}

func TestCompareReference(t *testing.T) {
	const extOut = 303 // more than 64, not a multiple of 4
	input := make([]byte, testCasesMax)
	paintInput(input)

	for _, n := range testCases {
		in := input[:n]

		// regular
		want := refSum(in, extOut)
		if got := Sum256(in); !bytes.Equal(got[:], want[:OutLen]) {
			t.Fatalf("len=%d: Sum256 = %s, want %x", n, got, want[:OutLen])
		}
		h := New()
		h.Write(in)
		if got := h.Sum256(); !bytes.Equal(got[:], want[:OutLen]) {
			t.Fatalf("len=%d: incremental = %s, want %x", n, got, want[:OutLen])
		}
		ext := make([]byte, extOut)
		h.Finalize(ext)
		if !bytes.Equal(ext, want) {
			t.Fatalf("len=%d: extended output mismatch", n)
		}

		// keyed
		want = refSumKeyed(testKey, in, extOut)
		if got := SumKeyed(testKey, in); !bytes.Equal(got[:], want[:OutLen]) {
			t.Fatalf("len=%d: SumKeyed = %s, want %x", n, got, want[:OutLen])
		}
		h = NewKeyed(testKey)
		h.Write(in)
		h.Finalize(ext)
		if !bytes.Equal(ext, want) {
			t.Fatalf("len=%d: keyed extended output mismatch", n)
		}

		// derive key
		want = refDeriveKey(testContext, in, extOut)
		DeriveKey(testContext, in, ext)
		if !bytes.Equal(ext, want) {
			t.Fatalf("len=%d: derived key mismatch", n)
		}
		h = NewDeriveKey(testContext)
		h.Write(in)
		if got := h.Sum256(); !bytes.Equal(got[:], want[:OutLen]) {
			t.Fatalf("len=%d: incremental derive = %s, want %x", n, got, want[:OutLen])
		}
	}
}

func TestSingleWriteMultiChunk(t *testing.T) {
	// One Write covering several chunks, with the trailing chunk staying
	// buffered: the stack must be merged down once bytes enter the chunk
	// state, or finalization builds the wrong tree shape.
	input := make([]byte, 9*ChunkLen+50)
	paintInput(input)

	for _, chunks := range []int{3, 5, 7, 9} {
		for _, extra := range []int{0, 50} {
			in := input[:chunks*ChunkLen+extra]
			h := New()
			h.Write(in)
			want := ref.Sum256(in)
			if got := h.Sum256(); got != Hash(want) {
				t.Fatalf("chunks=%d extra=%d: got %s, want %x", chunks, extra, got, want)
			}
		}
	}
}

func TestIncrementalSplits(t *testing.T) {
	// Every pair of short-case split points over a fixed input must give
	// the same digest as one Write of the concatenation.
	var short []int
	for _, n := range testCases {
		if n <= 4*ChunkLen {
			short = append(short, n)
		}
	}
	input := make([]byte, 8*ChunkLen+2)
	paintInput(input)

	for _, first := range short {
		for _, second := range short {
			h := New()
			h.Write(input[:first])
			h.Write(input[first : first+second])
			want := refSum(input[:first+second], OutLen)
			if got := h.Sum256(); !bytes.Equal(got[:], want) {
				t.Fatalf("splits (%d,%d): %s, want %x", first, second, got, want)
			}
		}
	}
}

func TestChunkBoundary(t *testing.T) {
	input := make([]byte, ChunkLen+1)
	paintInput(input)

	oneChunk := Sum256(input[:ChunkLen])
	oneChunkPlus := Sum256(input)
	if oneChunk == oneChunkPlus {
		t.Fatal("digests at the chunk boundary must differ")
	}
	if want := refSum(input[:ChunkLen], OutLen); !bytes.Equal(oneChunk[:], want) {
		t.Fatalf("one chunk: %s, want %x", oneChunk, want)
	}
	if want := refSum(input, OutLen); !bytes.Equal(oneChunkPlus[:], want) {
		t.Fatalf("one chunk + 1: %s, want %x", oneChunkPlus, want)
	}
}

func TestReset(t *testing.T) {
	big := make([]byte, 3*ChunkLen+7)
	small := make([]byte, ChunkLen+3)
	for i := range big {
		big[i] = 42
	}
	for i := range small {
		small[i] = 42
	}

	h := New()
	h.Write(big)
	h.Reset()
	h.Write(small)
	if got, want := h.Sum256(), Sum256(small); got != want {
		t.Fatalf("reset: %s, want %s", got, want)
	}

	kh := NewKeyed(testKey)
	kh.Write(big)
	kh.Reset()
	kh.Write(small)
	if got, want := kh.Sum256(), SumKeyed(testKey, small); got != want {
		t.Fatalf("keyed reset: %s, want %s", got, want)
	}

	kdf := NewDeriveKey(testContext)
	kdf.Write(big)
	kdf.Reset()
	kdf.Write(small)
	var want [OutLen]byte
	DeriveKey(testContext, small, want[:])
	if got := kdf.Sum256(); !bytes.Equal(got[:], want[:]) {
		t.Fatalf("derive reset: %s, want %x", got, want)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	input := make([]byte, 2*ChunkLen+33)
	paintInput(input)
	h := New()
	h.Write(input)
	first := h.Sum256()
	second := h.Sum256()
	if first != second {
		t.Fatalf("repeated finalize changed the digest: %s then %s", first, second)
	}
	// Finalizing must not disturb further writes either.
	h.Write(input)
	want := refSum(append(append([]byte{}, input...), input...), OutLen)
	if got := h.Sum256(); !bytes.Equal(got[:], want) {
		t.Fatalf("write after finalize: %s, want %x", got, want)
	}
}

func TestSumAppends(t *testing.T) {
	h := New()
	h.Write([]byte("foo"))
	prefix := []byte("prefix")
	sum := h.Sum(prefix)
	if !bytes.Equal(sum[:len(prefix)], prefix) {
		t.Fatal("Sum must append to its argument")
	}
	want := Sum256([]byte("foo"))
	if !bytes.Equal(sum[len(prefix):], want[:]) {
		t.Fatalf("Sum appended %x, want %s", sum[len(prefix):], want)
	}
}

func FuzzSum256(f *testing.F) {
	f.Add([]byte(nil))
	f.Add([]byte("foo"))
	f.Add(make([]byte, BlockLen))
	f.Add(make([]byte, ChunkLen))
	f.Add(make([]byte, ChunkLen+1))
	f.Add(make([]byte, 3*ChunkLen+50))

	f.Fuzz(func(t *testing.T, data []byte) {
		want := ref.Sum256(data)

		got := Sum256(data)
		if got != Hash(want) {
			t.Fatalf("Sum256 mismatch for len=%d\ngot:  %s\nwant: %x", len(data), got, want)
		}

		// Streaming, all at once.
		h := New()
		h.Write(data)
		if got := h.Sum256(); got != Hash(want) {
			t.Fatalf("Hasher mismatch for len=%d\ngot:  %s\nwant: %x", len(data), got, want)
		}

		// Streaming, byte by byte.
		h.Reset()
		for i := range data {
			h.Write(data[i : i+1])
		}
		if got := h.Sum256(); got != Hash(want) {
			t.Fatalf("byte-by-byte mismatch for len=%d\ngot:  %s\nwant: %x", len(data), got, want)
		}
	})
}

var benchSizes = []int{32, 128, 256, 1024, 4096, 64 * 1024, 1024 * 1024}

func benchName(size int) string {
	if size >= 1024 {
		return fmt.Sprintf("%dK", size/1024)
	}
	return fmt.Sprintf("%dB", size)
}

func BenchmarkFasterBlake3(b *testing.B) {
	for _, size := range benchSizes {
		data := make([]byte, size)
		paintInput(data)
		b.Run(benchName(size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Sum256(data)
			}
		})
	}
}

func BenchmarkFasterBlake3Parallel(b *testing.B) {
	var out [OutLen]byte
	for _, size := range []int{1024 * 1024, 16 * 1024 * 1024} {
		data := make([]byte, size)
		paintInput(data)
		b.Run(benchName(size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				SumParallel(data, out[:])
			}
		})
	}
}

// Comparison benchmarks: faster_blake3 vs lukechampine.com/blake3.
func BenchmarkReferenceBlake3(b *testing.B) {
	for _, size := range benchSizes {
		data := make([]byte, size)
		paintInput(data)
		b.Run(benchName(size), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ref.Sum256(data)
			}
		})
	}
}
