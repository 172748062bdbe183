//go:build arm64 && !purego

package blake3

import "golang.org/x/sys/cpu"

// NEON is four 32-bit lanes wide.
func detectDegree() int {
	if cpu.ARM64.HasASIMD {
		return 4
	}
	return 1
}
