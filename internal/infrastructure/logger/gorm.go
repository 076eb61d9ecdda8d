package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig controls how statements issued through GORM are logged.
type SQLLogConfig struct {
	// Level is the application log level; see SQLLevel
	Level string
	// SlowThreshold logs statements at warn once exceeded; 0 disables it
	SlowThreshold time.Duration
	// MaxStatementLength truncates logged SQL. Catalog upserts carry whole
	// variant payloads and would otherwise flood the log.
	MaxStatementLength int
}

// DefaultSQLLogConfig returns the settings used by the server.
func DefaultSQLLogConfig(level string) SQLLogConfig {
	return SQLLogConfig{
		Level:              level,
		SlowThreshold:      200 * time.Millisecond,
		MaxStatementLength: 2048,
	}
}

// SQLLogger sends GORM statement logs to zap. Missing rows are not logged;
// repositories turn them into domain not-found errors.
type SQLLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	cfg   SQLLogConfig
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

// NewSQLLogger creates a GORM logger writing to log under the "sql" name.
func NewSQLLogger(log *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	return &SQLLogger{
		log:   log.Named("sql"),
		level: SQLLevel(cfg.Level),
		cfg:   cfg,
	}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

// Trace logs a finished statement. Failures go to error, statements over
// the slow threshold to warn and everything else to debug.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold

	var emit func(string, ...zap.Field)
	msg := "SQL statement"
	switch {
	case err != nil && l.level >= gormlogger.Error:
		emit, msg = l.log.Error, "SQL statement failed"
	case slow && l.level >= gormlogger.Warn:
		emit, msg = l.log.Warn, "Slow SQL statement"
	case l.level >= gormlogger.Info:
		emit = l.log.Debug
	default:
		return
	}

	stmt, rows := fc()
	fields := []zap.Field{
		zap.String("sql", l.truncate(stmt)),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if slow {
		fields = append(fields, zap.Duration("slow_threshold", l.cfg.SlowThreshold))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	emit(msg, fields...)
}

func (l *SQLLogger) truncate(stmt string) string {
	limit := l.cfg.MaxStatementLength
	if limit <= 0 || len(stmt) <= limit {
		return stmt
	}
	return stmt[:limit] + "...(truncated)"
}

// SQLLevel maps an application log level to a GORM level. Debug enables
// per-statement logging; unknown levels only report slow statements.
func SQLLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
