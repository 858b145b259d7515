package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesPerLevel(t *testing.T) {
	l, err := NewQuiet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	l.Info("grid generated for frame %d", 12)
	l.Warning("station %s has no video", "ST01")
	l.Error("failed: %v", "boom")

	info, err := l.ReadLog(InfoFile)
	require.NoError(t, err)
	assert.Contains(t, string(info), "grid generated for frame 12")
	assert.Contains(t, string(info), "logger_test.go")

	warning, err := l.ReadLog(WarningFile)
	require.NoError(t, err)
	assert.Contains(t, string(warning), "station ST01 has no video")
	assert.NotContains(t, string(warning), "grid generated")

	errs, err := l.ReadLog(ErrorFile)
	require.NoError(t, err)
	assert.Contains(t, string(errs), "failed: boom")
}

func TestLogger_CleanLogs(t *testing.T) {
	l, err := NewQuiet(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	l.Error("something broke")
	require.NoError(t, l.CleanLogs(ErrorFile))

	errs, err := l.ReadLog(ErrorFile)
	require.NoError(t, err)
	assert.Empty(t, errs)

	assert.ErrorIs(t, l.CleanLogs("../secrets"), ErrUnknownLogFile)
	_, err = l.ReadLog("other.log")
	assert.ErrorIs(t, err, ErrUnknownLogFile)
}
