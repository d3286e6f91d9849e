// Package goroutine launches goroutines with panic recovery so a single
// misbehaving job or sweep cannot take down the whole engine.
package goroutine

import (
	"runtime/debug"

	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic inside fn is recovered and
// logged with its stack trace under the given name.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
