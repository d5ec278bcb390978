// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package combiner

import "unsafe"

// negU64 computes the two's-complement negation of x, for passing to an
// atomix.Uint64.AddAcqRel call that should subtract rather than add
// (atomix exposes only Add, mirroring sync/atomic's own AddUint64).
func negU64(x uint64) uint64 {
	return -x
}

// ptrToUintptr captures a pointer's bit pattern for storage in an
// atomix.Uintptr, the same encoding used elsewhere in this module to
// pack pointer-sized values into an atomic word.
func ptrToUintptr[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}
