package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedSQLLogger(cfg SQLLogConfig) (*SQLLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewSQLLogger(zap.New(core), cfg), recorded
}

func TestSQLLogger_LogMode(t *testing.T) {
	l := NewSQLLogger(zap.NewNop(), SQLLogConfig{Level: "debug", SlowThreshold: time.Second})
	changed, ok := l.LogMode(gormlogger.Warn).(*SQLLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, l.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
	assert.Equal(t, time.Second, changed.cfg.SlowThreshold)
}

func TestSQLLogger_Trace(t *testing.T) {
	stmt := func() (string, int64) {
		return `UPDATE "fulfillment_orders" SET "status"='shipped'`, 1
	}
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

	t.Run("failure", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "warn"})

		l.Trace(ctx, time.Now(), stmt, errors.New("deadlock detected"))
		entries := recorded.FilterMessage("SQL statement failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])
		assert.Equal(t, "deadlock detected", entries[0].ContextMap()["error"])
	})

	t.Run("missing row is not logged", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "debug"})

		l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow statement", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "warn", SlowThreshold: time.Millisecond})

		l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
		entries := recorded.FilterMessage("Slow SQL statement").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("fast statement below info is dropped", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "warn", SlowThreshold: time.Minute})

		l.Trace(ctx, time.Now(), stmt, nil)
		assert.Zero(t, recorded.Len())
	})

	t.Run("debug logs every statement", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "debug"})

		l.Trace(ctx, time.Now(), stmt, nil)
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.DebugLevel, recorded.All()[0].Level)
	})

	t.Run("silent", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "silent"})

		l.Trace(ctx, time.Now(), stmt, errors.New("x"))
		assert.Zero(t, recorded.Len())
	})

	t.Run("long statements are truncated", func(t *testing.T) {
		l, recorded := newObservedSQLLogger(SQLLogConfig{Level: "debug", MaxStatementLength: 16})
		long := func() (string, int64) {
			return `INSERT INTO "catalog_products" ("variants") VALUES ('` + strings.Repeat("x", 500) + `')`, 1
		}

		l.Trace(ctx, time.Now(), long, nil)
		require.Equal(t, 1, recorded.Len())
		logged := recorded.All()[0].ContextMap()["sql"].(string)
		assert.Equal(t, `INSERT INTO "cat...(truncated)`, logged)
	})
}

func TestSQLLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, SQLLevel("silent"))
	assert.Equal(t, gormlogger.Error, SQLLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, SQLLevel("debug"))
	assert.Equal(t, gormlogger.Warn, SQLLevel(""))
}

func TestDefaultSQLLogConfig(t *testing.T) {
	cfg := DefaultSQLLogConfig("info")
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
	assert.Positive(t, cfg.MaxStatementLength)
}
