// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package combiner

import "code.hybscloud.com/combiner/queue"

// IsInconsistent reports whether status is queue.Inconsistent: the
// transient state queue.Pop returns when a push has reserved its slot
// via CAS but has not yet linked to its predecessor. It is not a
// failure, mirroring how [code.hybscloud.com/combiner/bq.IsWouldBlock]
// classifies a full or empty bq queue as non-failure rather than error.
// continueExecCtx treats it as a cue to offload and retry later; a
// caller driving its own drain loop outside this package can use it the
// same way.
func IsInconsistent(status queue.Status) bool {
	return status == queue.Inconsistent
}
