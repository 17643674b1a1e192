package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/feedcache"
)

var _ feedcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l; component is attached to every entry when non-empty.
func New(l *logrus.Logger, component string) Logger {
	e := logrus.NewEntry(l)
	if component != "" {
		e = e.WithField("component", component)
	}
	return Logger{E: e}
}

func (l Logger) Debug(msg string, f feedcache.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l Logger) Info(msg string, f feedcache.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l Logger) Warn(msg string, f feedcache.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l Logger) Error(msg string, f feedcache.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l Logger) log(lvl logrus.Level, msg string, f feedcache.Fields) {
	if !l.E.Logger.IsLevelEnabled(lvl) {
		return
	}
	l.E.WithFields(logrus.Fields(f)).Log(lvl, msg)
}
