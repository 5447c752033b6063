package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRing_KeepsNewestEntries(t *testing.T) {
	ring := NewRing(3, zapcore.DebugLevel)
	lg := zap.New(ring)

	for i := 0; i < 5; i++ {
		lg.Info(fmt.Sprintf("msg-%d", i))
	}

	entries := ring.Entries(zapcore.DebugLevel, 0)
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-2", entries[0].Message)
	assert.Equal(t, "msg-4", entries[2].Message)
	assert.Equal(t, "INFO", entries[0].Name)
}

func TestRing_FiltersByLevelAndLimit(t *testing.T) {
	ring := NewRing(10, zapcore.DebugLevel)
	lg := zap.New(ring)

	lg.Debug("d")
	lg.Info("i")
	lg.Warn("w")
	lg.Error("e")

	warnAndUp := ring.Entries(zapcore.WarnLevel, 0)
	require.Len(t, warnAndUp, 2)
	assert.Equal(t, "w", warnAndUp[0].Message)

	last := ring.Entries(zapcore.DebugLevel, 1)
	require.Len(t, last, 1)
	assert.Equal(t, "e", last[0].Message)
}

func TestRing_FieldsAndClear(t *testing.T) {
	ring := NewRing(10, zapcore.DebugLevel)
	lg := zap.New(ring).With(zap.String(FieldScheduleID, "schedule_1"))

	lg.Info("run started", zap.Int("files", 3))

	entries := ring.Entries(zapcore.InfoLevel, 10)
	require.Len(t, entries, 1)
	assert.Equal(t, "run started files=3 scheduleId=schedule_1", entries[0].Message)

	ring.Clear()
	assert.Equal(t, 0, ring.Len())
	assert.Empty(t, ring.Entries(zapcore.DebugLevel, 0))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
