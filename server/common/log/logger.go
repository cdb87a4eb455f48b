package log

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogFilePath  = "./logs/gallery.log"
	defaultMaxSizeBytes = 20 * 1024 * 1024
	envLogFilePath      = "LOG_FILE_PATH"
	envLogMaxSizeMB     = "LOG_MAX_SIZE_MB"
	envLogFormat        = "LOG_FORMAT"
	envLogLevel         = "LOG_LEVEL"
	logFormatText       = "text"
	logFormatJSON       = "json"
)

var global = newLoggerFromEnv()

func newLoggerFromEnv() *zap.SugaredLogger {
	path := strings.TrimSpace(os.Getenv(envLogFilePath))
	if path == "" {
		path = defaultLogFilePath
	}

	maxSizeBytes := int64(defaultMaxSizeBytes)
	if raw := strings.TrimSpace(os.Getenv(envLogMaxSizeMB)); raw != "" {
		if sizeMB, err := strconv.Atoi(raw); err == nil && sizeMB > 0 {
			maxSizeBytes = int64(sizeMB) * 1024 * 1024
		}
	}
	format := strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat)))
	if format != logFormatJSON {
		format = logFormatText
	}
	level := zapcore.DebugLevel
	if raw := strings.TrimSpace(os.Getenv(envLogLevel)); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	return New(format, level, zapcore.Lock(os.Stdout), newRotatingFile(path, maxSizeBytes))
}

// New builds a logger writing to every sink. Console output is colored in
// text mode; the file copy never is.
func New(format string, level zapcore.Level, console zapcore.WriteSyncer, file zapcore.WriteSyncer) *zap.SugaredLogger {
	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.TimeKey = "timestamp"
	fileEnc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleEnc := fileEnc
	var fileEncoder, consoleEncoder zapcore.Encoder
	if format == logFormatJSON {
		fileEncoder = zapcore.NewJSONEncoder(fileEnc)
		consoleEncoder = zapcore.NewJSONEncoder(consoleEnc)
	} else {
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		fileEncoder = zapcore.NewConsoleEncoder(fileEnc)
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEnc)
	}

	cores := make([]zapcore.Core, 0, 2)
	if console != nil {
		cores = append(cores, zapcore.NewCore(consoleEncoder, console, level))
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(fileEncoder, file, level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLogger replaces the package logger and returns the previous one.
func SetLogger(l *zap.SugaredLogger) *zap.SugaredLogger {
	prev := global
	global = l
	return prev
}

func Sync() {
	_ = global.Sync()
}

func Debugf(format string, args ...any) {
	global.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	global.Infof(format, args...)
}

func Warnf(format string, args ...any) {
	global.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	global.Errorf(format, args...)
}

// Exceptionf logs at DPanic: it panics in development builds only.
func Exceptionf(format string, args ...any) {
	global.DPanicf(format, args...)
}
