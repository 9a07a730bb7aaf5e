package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings stores config for Logger
type Settings struct {
	Path       string `yaml:"path"`
	Name       string `yaml:"name"`
	Ext        string `yaml:"ext"`
	TimeFormat string `yaml:"time-format"`
	// Level is one of debug, info, warn, error. Empty means info
	Level string `yaml:"level"`
	// MaxSize is the size in megabytes of a log file before it gets rotated
	MaxSize    int `yaml:"max-size"`
	MaxBackups int `yaml:"max-backups"`
}

const (
	defaultMaxSize    = 64
	defaultMaxBackups = 4
)

var defaultLogger atomic.Pointer[zap.SugaredLogger]

func init() {
	defaultLogger.Store(newStderrLogger(zapcore.InfoLevel))
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func newStderrLogger(level zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// NewFileLogger creates a logger which print msg to stdout and a rotated log file
func NewFileLogger(settings *Settings) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(settings.Level)
	if err != nil || settings.Level == "" {
		level = zapcore.InfoLevel
	}
	if err := os.MkdirAll(settings.Path, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log dir %s failed: %w", settings.Path, err)
	}
	timeFormat := settings.TimeFormat
	if timeFormat == "" {
		timeFormat = "2006-01-02"
	}
	fileName := fmt.Sprintf("%s-%s.%s",
		settings.Name,
		time.Now().Format(timeFormat),
		settings.Ext)
	maxSize, maxBackups := settings.MaxSize, settings.MaxBackups
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(settings.Path, fileName),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(), nil
}

// Setup initializes the default logger
func Setup(settings *Settings) {
	logger, err := NewFileLogger(settings)
	if err != nil {
		panic(err)
	}
	defaultLogger.Store(logger)
}

// SetLevel replaces the default logger by a stderr logger of the given level, mostly used by tests
func SetLevel(level string) {
	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		lv = zapcore.InfoLevel
	}
	defaultLogger.Store(newStderrLogger(lv))
}

// Sync flushes buffered log entries
func Sync() {
	_ = defaultLogger.Load().Sync()
}

// Debug logs debug message through the default logger
func Debug(v ...interface{}) {
	defaultLogger.Load().Debugln(v...)
}

// Debugf logs debug message through the default logger
func Debugf(format string, v ...interface{}) {
	defaultLogger.Load().Debugf(format, v...)
}

// Info logs message through the default logger
func Info(v ...interface{}) {
	defaultLogger.Load().Infoln(v...)
}

// Infof logs message through the default logger
func Infof(format string, v ...interface{}) {
	defaultLogger.Load().Infof(format, v...)
}

// Warn logs warning message through the default logger
func Warn(v ...interface{}) {
	defaultLogger.Load().Warnln(v...)
}

// Warnf logs warning message through the default logger
func Warnf(format string, v ...interface{}) {
	defaultLogger.Load().Warnf(format, v...)
}

// Error logs error message through the default logger
func Error(v ...interface{}) {
	defaultLogger.Load().Errorln(v...)
}

// Errorf logs error message through the default logger
func Errorf(format string, v ...interface{}) {
	defaultLogger.Load().Errorf(format, v...)
}

// Fatal prints error message then stop the program
func Fatal(v ...interface{}) {
	defaultLogger.Load().Fatalln(v...)
}
