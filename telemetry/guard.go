package telemetry

import "fmt"

// guard runs fn, downgrading any error or panic raised by instrumentation
// code to a debug log entry. It is applied inside every public recording
// entry point; application errors never pass through fn, so nothing of the
// caller's can be swallowed here.
func guard(log Logger, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			if log != nil {
				log.Debug("telemetry panic suppressed",
					F("op", what),
					F("panic", fmt.Sprint(r)),
				)
			}
		}
	}()

	if err := fn(); err != nil {
		if log != nil {
			log.Debug("telemetry failure suppressed",
				F("op", what),
				F("error", err.Error()),
			)
		}
	}
}
