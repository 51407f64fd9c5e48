package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging through slog. SQL statements are logged at
// debug level, slow queries and query errors at warn.
type GormAdapter struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

func NewGormAdapter(l *slog.Logger, slowThreshold time.Duration) *GormAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &GormAdapter{logger: l, slowThreshold: slowThreshold}
}

// LogMode is a no-op; verbosity follows the slog handler level.
func (a *GormAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.logger.DebugContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.logger.WarnContext(ctx, "query error",
			slog.String("sql", sql),
			slog.Int64("rows_affected", rows),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.Any("error", err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.logger.WarnContext(ctx, "slow query",
			slog.String("sql", sql),
			slog.Int64("rows_affected", rows),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.Duration("threshold", a.slowThreshold))
	default:
		a.logger.DebugContext(ctx, "sql query",
			slog.String("sql", sql),
			slog.Int64("rows_affected", rows),
			slog.Int64("duration_ms", elapsed.Milliseconds()))
	}
}
