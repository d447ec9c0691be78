// Package brightlog is a thin structured-logging wrapper fixing the field
// names the streaming pipeline and CLI report lifecycle events under,
// grounded on orbas1-Synnergy/synnergy-network/walletserver/middleware's
// direct use of github.com/sirupsen/logrus for request lifecycle logging.
package brightlog

import (
	"brightchain.dev/core/checksum"

	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Entry, pinning the "component" field so every
// call site names the subsystem it logs from.
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger scoped to component (e.g. "streaming", "cli").
func New(component string) *Logger {
	return &Logger{entry: logrus.WithField("component", component)}
}

// Op returns a child Logger with an "op" field set, for one lifecycle
// operation (e.g. "chunk-drained", "tuple-persisted", "cbl-emitted").
func (l *Logger) Op(op string) *Logger {
	return &Logger{entry: l.entry.WithField("op", op)}
}

// Checksum returns a child Logger carrying a hex "checksum" field.
func (l *Logger) Checksum(c checksum.Checksum) *Logger {
	return &Logger{entry: l.entry.WithField("checksum", c.String())}
}

func (l *Logger) Info(msg string)             { l.entry.Info(msg) }
func (l *Logger) Warn(msg string)             { l.entry.Warn(msg) }
func (l *Logger) Error(err error, msg string) { l.entry.WithError(err).Error(msg) }
func (l *Logger) Debug(msg string)            { l.entry.Debug(msg) }
