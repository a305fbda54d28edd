package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxSQLLength = 1000

var tableRegexp = regexp.MustCompile(`(?i)\b(?:from|into|update|table)\s+["` + "`" + `]?(\w+)`)

// GormConfig configures the SQL logger of the user registry.
type GormConfig struct {
	// Driver is the storage driver name attached to every entry.
	Driver           string
	SlowQuerySeconds float64
	Level            string
}

// GormLogger writes GORM statements to zap with the statement's table and
// operation attached. Duplicate-key failures are expected registry conflicts
// and are logged at debug level.
type GormLogger struct {
	log           *zap.Logger
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a GORM logger from the service log level.
func NewGormLogger(zapLogger *zap.Logger, cfg GormConfig) *GormLogger {
	var level gormlogger.LogLevel
	switch strings.ToLower(cfg.Level) {
	case "silent":
		level = gormlogger.Silent
	case "error":
		level = gormlogger.Error
	case "info", "debug":
		level = gormlogger.Info
	default:
		level = gormlogger.Warn
	}

	return &GormLogger{
		log:           zapLogger.With(zap.String("storage_driver", cfg.Driver)),
		slowThreshold: time.Duration(cfg.SlowQuerySeconds * float64(time.Second)),
		level:         level,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithContext(ctx, l.log).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithContext(ctx, l.log).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithContext(ctx, l.log).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := append(statementFields(sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	log := WithContext(ctx, l.log)

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		log.Debug("sql duplicate key", fields...)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("sql statement failed", append(fields, zap.Error(err))...)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("sql slow statement", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		log.Info("sql statement", fields...)
	}
}

// statementFields describes a statement by operation and table, with the SQL
// text capped at maxSQLLength.
func statementFields(sql string) []zap.Field {
	operation := "UNKNOWN"
	if word, _, _ := strings.Cut(strings.TrimSpace(sql), " "); word != "" {
		operation = strings.ToUpper(word)
	}

	fields := []zap.Field{zap.String("operation", operation)}
	if m := tableRegexp.FindStringSubmatch(sql); m != nil {
		fields = append(fields, zap.String("table", m[1]))
	}

	if len(sql) > maxSQLLength {
		return append(fields, zap.String("sql", sql[:maxSQLLength]+"..."), zap.Bool("sql_truncated", true))
	}
	return append(fields, zap.String("sql", sql))
}
