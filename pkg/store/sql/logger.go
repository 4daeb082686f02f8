//nolint:goprintffuncname
package sql

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger routes gorm's query log through logrus. Every query is a trace entry
// at debug level, slow queries are warnings and failed queries are errors.
type gormLogger struct {
	entry  *logrus.Entry
	config LoggerConfig
}

type LoggerConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

//nolint:ireturn
func NewLogger(l *logrus.Logger, cfg LoggerConfig) logger.Interface {
	return &gormLogger{
		entry:  l.WithField("component", "store"),
		config: cfg,
	}
}

// LogMode is a no-op; the level comes from the logrus logger.
//
//nolint:ireturn
func (l *gormLogger) LogMode(_ logger.LogLevel) logger.Interface {
	return l
}

const (
	maximumCallerDepth int = 15
	minimumCallerDepth int = 4
)

// caller adds the first frame outside gorm, which is the store method that ran the query.
func (l *gormLogger) caller(ctx context.Context) *logrus.Entry {
	entry := l.entry.WithContext(ctx)

	pcs := make([]uintptr, maximumCallerDepth)
	depth := runtime.Callers(minimumCallerDepth, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	for f, again := frames.Next(); again; f, again = frames.Next() {
		if !strings.HasPrefix(f.Function, "gorm.io/") {
			return entry.WithField("caller", fmt.Sprintf("%s:%d", f.File, f.Line))
		}
	}

	return entry
}

func (l *gormLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.caller(ctx).Infof(format, args...)
}

func (l *gormLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.caller(ctx).Warnf(format, args...)
}

func (l *gormLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.caller(ctx).Errorf(format, args...)
}

func (l *gormLogger) Trace(
	ctx context.Context,
	begin time.Time,
	query func() (sql string, rowsAffected int64),
	err error,
) {
	base := l.entry.Logger

	elapsed := time.Since(begin)
	withSQL := func() *logrus.Entry {
		sql, rows := query()
		entry := l.caller(ctx).WithFields(logrus.Fields{
			"elapsed": elapsed.Round(time.Microsecond).String(),
			"sql":     sql,
		})
		if rows >= 0 {
			entry = entry.WithField("rows", rows)
		}
		return entry
	}

	switch {
	case err != nil &&
		base.IsLevelEnabled(logrus.ErrorLevel) &&
		(!errors.Is(err, gorm.ErrRecordNotFound) || !l.config.IgnoreRecordNotFoundError):
		withSQL().WithError(err).Error("SQL error")
	case l.config.SlowThreshold != 0 &&
		elapsed > l.config.SlowThreshold &&
		base.IsLevelEnabled(logrus.WarnLevel):
		withSQL().Warnf("SLOW SQL >= %v", l.config.SlowThreshold)
	case base.IsLevelEnabled(logrus.DebugLevel):
		withSQL().Debug("SQL trace")
	}
}
