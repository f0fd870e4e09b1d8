package util

import (
	"github.com/replay-rec/replay/base/log"
	"go.uber.org/zap"
)

// CheckPanic catches panics in worker goroutines.
func CheckPanic() {
	if r := recover(); r != nil {
		log.Logger().Error("panic recovered", zap.Any("panic", r))
	}
}
