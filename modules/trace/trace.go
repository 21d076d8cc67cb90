package trace

import (
	"github.com/sirupsen/logrus"
)

// Debuger is the per-component verbose logger the core hands per-path
// resolution detail to (SPEC_FULL §3's ambient logging stack): DbgPrint logs
// at Debug level through a logrus entry tagged component=ort, and only when
// the Debuger was built verbose. Warn-level messages for non-fatal
// conditions are logged by the ort package itself, not through a Debuger.
type Debuger interface {
	DbgPrint(format string, args ...any)
}

// NewDebuger returns a Debuger that prints to stderr when verbose is set,
// whatever level the standard logrus logger is configured at.
func NewDebuger(verbose bool) Debuger {
	level := logrus.InfoLevel
	logger := logrus.StandardLogger()
	if verbose {
		level = logrus.DebugLevel
		logger = logrus.New()
		logger.SetLevel(logrus.DebugLevel)
	}
	return &debuger{entry: logger.WithField("component", "ort"), level: level}
}

type debuger struct {
	entry *logrus.Entry
	level logrus.Level
}

func (d debuger) DbgPrint(format string, args ...any) {
	if d.level < logrus.DebugLevel {
		return
	}
	d.entry.Debugf(format, args...)
}

var (
	_ Debuger = &debuger{}
)
