package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFileEncoderLine(t *testing.T) {
	enc := newFileEncoder()
	enc.AddString("component", "store")

	entry := zapcore.Entry{
		Level:      zapcore.WarnLevel,
		Time:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		LoggerName: "reducer",
		Message:    "failed to apply event",
	}
	buf, err := enc.EncodeEntry(entry, []zapcore.Field{zap.Uint64("block", 7)})
	require.NoError(t, err)

	assert.Equal(t,
		"2024-05-01 12:00:00     WARN [reducer] failed to apply event\t{\"block\":7,\"component\":\"store\"}\n",
		buf.String())

	// fields passed to EncodeEntry do not leak into the encoder
	assert.Len(t, enc.Fields, 1)
}

func TestInitWritesToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, FileName: "test.log", Level: "info"}))
	t.Cleanup(func() {
		Logger = zap.NewNop()
		consoleLogger = zap.NewNop()
	})

	LogDebug("hidden")
	Named("store").Info("committed", zap.Uint64("block", 3))
	require.NoError(t, Sync())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "INFO [store] committed\t{\"block\":3}")
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init(Options{Dir: t.TempDir(), Level: "loud"}))
}
