//go:build amd64 && !purego

package blake3

import "golang.org/x/sys/cpu"

// Wider vector units pay for wider batches. AVX-512 runs sixteen 32-bit
// lanes per register, AVX2 eight, SSE4.1 four.
func detectDegree() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 16
	case cpu.X86.HasAVX2:
		return 8
	case cpu.X86.HasSSE41 && cpu.X86.HasAVX:
		return 4
	default:
		return 1
	}
}
