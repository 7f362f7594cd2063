// Package log holds two zap loggers: a file logger that receives every level
// and a colored console logger that only shows SUCCESS (info) and ERROR lines.
// Until Init is called both are no-ops, so packages can log from tests.
package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger        = zap.NewNop()
	consoleLogger = zap.NewNop()
	mu            sync.Mutex
	closer        func() error
)

// Options controls where and how much is logged.
type Options struct {
	Dir      string
	FileName string
	Level    string
}

// Init builds the file and console loggers. Safe to call more than once;
// the latest call wins.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.FileName == "" {
		opts.FileName = "wrapsync.log"
	}
	level := zapcore.DebugLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, opts.FileName),
		MaxSize:    MaxLogFileSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}
	fileLogger := zap.New(zapcore.NewCore(newFileEncoder(), zapcore.AddSync(writer), level))

	consoleConfig := zap.NewDevelopmentConfig()
	consoleConfig.EncoderConfig.EncodeLevel = customLevelEncoder
	consoleConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncoderConfig.EncodeCaller = nil
	consoleConfig.Development = false
	consoleConfig.DisableStacktrace = true
	consoleConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	console, err := consoleConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build console logger: %w", err)
	}

	if closer != nil {
		_ = closer()
	}
	Logger = fileLogger
	consoleLogger = console
	closer = func() error {
		_ = console.Sync()
		_ = fileLogger.Sync()
		return writer.Close()
	}
	return nil
}

// Sync flushes both loggers and closes the log file.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

// Named returns a child of the file logger, used by components that keep
// their own *zap.Logger.
func Named(name string) *zap.Logger {
	return Logger.Named(name)
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "SUCCESS" + colorReset) // console info = SUCCESS
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel, zapcore.FatalLevel, zapcore.PanicLevel:
		enc.AppendString(colorRed + level.CapitalString() + colorReset)
	default:
		enc.AppendString(colorWhite + level.String() + colorReset)
	}
}

// LogInfo writes to the file only.
func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
}

// LogSuccess writes to the file and prints a check line on the console.
func LogSuccess(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	if durationMs := extractDuration(fields); durationMs > 0 {
		consoleLogger.Info(fmt.Sprintf("✓ %s (%dms)", message, durationMs))
		return
	}
	consoleLogger.Info("✓ " + message)
}

// LogError writes to the file and prints a cross line on the console.
func LogError(message string, fields ...zap.Field) {
	Logger.Error(message, fields...)
	if durationMs := extractDuration(fields); durationMs > 0 {
		consoleLogger.Error(fmt.Sprintf("✗ %s (%dms)", message, durationMs))
		return
	}
	consoleLogger.Error("✗ " + message)
}

func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
}

func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
}

func extractDuration(fields []zap.Field) int64 {
	for _, field := range fields {
		if field.Key == "duration_ms" && field.Type == zapcore.Int64Type {
			return field.Integer
		}
	}
	return 0
}

// MaxLogFileSizeMB is the size at which the log file is rotated.
const MaxLogFileSizeMB = 50

// fileEncoder prints "time     LEVEL message\t{json fields}" lines.
// Context fields added through Logger.With live in the embedded map encoder.
type fileEncoder struct {
	*zapcore.MapObjectEncoder
}

func newFileEncoder() *fileEncoder {
	return &fileEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (e *fileEncoder) Clone() zapcore.Encoder {
	clone := newFileEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (e *fileEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := buffer.NewPool().Get()

	buf.AppendString(entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendString("     ")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString(" ")
	if entry.LoggerName != "" {
		buf.AppendString("[" + entry.LoggerName + "] ")
	}
	buf.AppendString(entry.Message)

	merged := e.Clone().(*fileEncoder)
	for _, f := range fields {
		f.AddTo(merged)
	}
	if len(merged.Fields) > 0 {
		if data, err := json.Marshal(merged.Fields); err == nil {
			buf.AppendString("\t")
			buf.Write(data)
		}
	}

	buf.AppendString("\n")
	return buf, nil
}
