package lsm

import "go.uber.org/zap"

// Logger is the structured-logging contract the coordinator depends on.
// It never owns a concrete sink; go.uber.org/zap's SugaredLogger already
// satisfies this interface, so it is the default and the only adapter
// this package needs to write.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

func defaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// NopLogger returns a Logger that discards everything, for callers who
// want the engine silent.
func NopLogger() Logger {
	return zap.NewNop().Sugar()
}
