package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func timeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// newEncoder returns a JSON encoder unless Format is "console".
func newEncoder(config Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     config.MessageKey,
		LevelKey:       config.LevelKey,
		TimeKey:        config.TimeKey,
		NameKey:        config.NameKey,
		CallerKey:      config.CallerKey,
		StacktraceKey:  config.StacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     timeEncoder(config),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// levelFile rotates <Director>/<level>.log through lumberjack.
func levelFile(config Config, level zapcore.Level) *lumberjack.Logger {
	_ = os.MkdirAll(config.Director, 0o755)
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.Director, level.String()+".log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
}

func writeSyncer(config Config, level zapcore.Level) zapcore.WriteSyncer {
	var syncers []zapcore.WriteSyncer
	if config.writesTerminal() {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	if config.writesFile() {
		syncers = append(syncers, zapcore.AddSync(levelFile(config, level)))
	}
	if len(syncers) == 0 {
		return zapcore.AddSync(os.Stdout)
	}
	return zapcore.NewMultiWriteSyncer(syncers...)
}

// newCores builds one core per level at or above config.Level so each level
// lands in its own file.
func newCores(config Config) []zapcore.Core {
	encoder := newEncoder(config)
	cores := make([]zapcore.Core, 0, 7)
	for level := config.TransportLevel(); level <= zapcore.FatalLevel; level++ {
		exact := level
		enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == exact })
		cores = append(cores, zapcore.NewCore(encoder, writeSyncer(config, level), enabler))
	}
	return cores
}
