package log

import "go.uber.org/zap"

type zapLogger struct {
	l *zap.SugaredLogger
}

// Zap adapts a *zap.Logger to this package's Logger interface, following
// the teacher's convention of wrapping a concrete logging library behind
// its own minimal Logger contract.
func Zap(l *zap.Logger) Logger {
	return zapLogger{l: l.Sugar()}
}

func (z zapLogger) Tracef(format string, args ...interface{}) { z.l.Debugf(format, args...) }
func (z zapLogger) Debugf(format string, args ...interface{}) { z.l.Debugf(format, args...) }
func (z zapLogger) Infof(format string, args ...interface{})  { z.l.Infof(format, args...) }
func (z zapLogger) Warnf(format string, args ...interface{})  { z.l.Warnf(format, args...) }
func (z zapLogger) Errorf(format string, args ...interface{}) { z.l.Errorf(format, args...) }

func (z zapLogger) WithName(name string) Logger {
	return zapLogger{l: z.l.Named(name)}
}
