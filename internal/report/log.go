package report

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"

	"github.com/toyz/as2amd/internal/errors"
)

// Log forwards events to a logrus logger as structured entries
type Log struct {
	ErrorFlag
	entry *logrus.Entry
}

// NewLog creates a reporter on logger. Fields are attached to every entry.
func NewLog(logger logrus.FieldLogger, fields logrus.Fields) *Log {
	return &Log{entry: logger.WithFields(fields)}
}

func (l *Log) Step(e Event) {
	entry := l.entry.WithField("phase", e.Phase)
	if len(e.Context) > 0 {
		entry = entry.WithFields(logrus.Fields(e.Context))
	}
	switch e.Level {
	case LevelWarn:
		entry.Warn(e.Message)
	case LevelInfo:
		entry.Info(e.Message)
	default:
		entry.Debug(e.Message)
	}
}

func (l *Log) Error(phase string, err error) {
	l.Mark()
	entry := l.entry.WithField("phase", phase).WithError(err)
	var ce errors.ConvertError
	if stderrors.As(err, &ce) {
		entry = entry.WithField("code", ce.ErrorCode().String())
		if loc := ce.Location(); !loc.IsEmpty() {
			entry = entry.WithField("location", loc.String())
		}
	}
	entry.Error("conversion error")
}

// NewLogger builds the logrus logger the CLI uses
func NewLogger(format, level string) (*logrus.Logger, error) {
	logger := logrus.New()
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return logger, nil
}
