package esiproc

import "go.uber.org/zap"

// nopLogger is the Sugared no-op logger used when [Options].Logger is nil.
var nopLogger = zap.NewNop().Sugar()

func loggerOrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return nopLogger
	}
	return l
}
