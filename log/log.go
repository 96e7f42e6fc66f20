// Package log provides the module-scoped structured logger used throughout
// supernova, in the call shape the teacher codebase uses:
// logger.Info("message", "key1", value1, "key2", value2).
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names, mirroring the teacher's log.Common/log.StorageDatabase style
// constants so every package can name its own logger.
const (
	Common     = "common"
	Storage    = "storage"
	Consensus  = "consensus"
	Chain      = "chain"
	Validation = "validation"
	Mempool    = "mempool"
	Script     = "script"
	Crypto     = "crypto"
	Work       = "work"
)

// Logger is the structured logger interface used across the codebase.
type Logger interface {
	Trace(msg string, kv ...interface{})
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Crit(msg string, kv ...interface{}) // logs at Fatal level and then exits the process
}

var (
	baseOnce sync.Once
	base     *zap.SugaredLogger
)

func rootLogger() *zap.SugaredLogger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zapcore.AddSync(os.Stderr),
			zap.NewAtomicLevelAt(zap.InfoLevel),
		)
		base = zap.New(core).Sugar()
	})
	return base
}

type moduleLogger struct {
	sugar *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with the given module name, the
// way the teacher's log.NewModuleLogger(log.Common) constructs a
// package-local logger.
func NewModuleLogger(module string) Logger {
	return &moduleLogger{sugar: rootLogger().With("module", module)}
}

func (l *moduleLogger) Trace(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *moduleLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *moduleLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *moduleLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *moduleLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *moduleLogger) Crit(msg string, kv ...interface{})  { l.sugar.Fatalw(msg, kv...) }
