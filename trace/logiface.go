// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trace

import "github.com/joeycumines/logiface"

// LogifaceTracer adapts a logiface logger into a Tracer, logging each
// event at Info level with its fields attached as structured values.
//
// logiface is backend-agnostic: construct the concrete logger with
// whichever adapter fits (logiface-slog's islog.L, logiface-zerolog's
// izerolog.L, logiface-logrus, ...), then pass its generified form
// (Logger.Logger) here. See DESIGN.md for why this module depends on
// logiface rather than a single hardcoded backend.
func LogifaceTracer(logger *logiface.Logger[logiface.Event]) Tracer {
	if logger == nil {
		return Nop{}
	}
	return Func(func(ev Event) {
		b := logger.Info()
		if b == nil {
			return
		}
		b = b.Uint64("combiner", uint64(ev.Combiner))
		for _, f := range ev.Fields {
			b = b.Any(f.Key, f.Value)
		}
		b.Log(ev.Name)
	})
}
