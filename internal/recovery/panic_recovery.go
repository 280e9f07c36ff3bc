package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

var Logger = slog.Default()

// Go runs fn in its own goroutine with panic recovery.
func Go(name string, fn func()) {
	go WithRecoveryNamed(name, fn)
}

// WithRecoveryNamed runs fn in the current goroutine, logging any panic
// with its stack instead of crashing the process.
func WithRecoveryNamed(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("goroutine_panic_recovered",
				slog.String("worker_name", name),
				slog.String("error", fmt.Sprintf("%v", r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
