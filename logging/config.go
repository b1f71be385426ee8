package logging

import (
	"strings"

	"github.com/creasty/defaults"
	"go.uber.org/zap/zapcore"
)

// Output selects where log entries go.
const (
	OutputTerminal = "terminal"
	OutputFile     = "file"
	OutputBoth     = "both"
)

// Config represents the logger configuration.
type Config struct {
	// Director is the directory where per-level log files are written.
	Director string `mapstructure:"director" json:"director" yaml:"director" default:"logs"`

	MessageKey    string `mapstructure:"message-key" json:"messageKey" yaml:"message-key" default:"message"`
	LevelKey      string `mapstructure:"level-key" json:"levelKey" yaml:"level-key" default:"level"`
	TimeKey       string `mapstructure:"time-key" json:"timeKey" yaml:"time-key" default:"time"`
	NameKey       string `mapstructure:"name-key" json:"nameKey" yaml:"name-key" default:"logger"`
	CallerKey     string `mapstructure:"caller-key" json:"callerKey" yaml:"caller-key" default:"caller"`
	StacktraceKey string `mapstructure:"stacktrace-key" json:"stacktraceKey" yaml:"stacktrace-key" default:"stacktrace"`

	// Level is the minimum log level (debug, info, warn, error, dpanic, panic, fatal).
	Level string `mapstructure:"level" json:"level" yaml:"level" default:"info"`

	// EncodeLevel is one of LowercaseLevelEncoder, LowercaseColorLevelEncoder,
	// CapitalLevelEncoder, CapitalColorLevelEncoder.
	EncodeLevel string `mapstructure:"encode-level" json:"encodeLevel" yaml:"encode-level" default:"LowercaseLevelEncoder"`

	Prefix     string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	TimeFormat string `mapstructure:"time-format" json:"timeFormat" yaml:"time-format" default:"2006/01/02 - 15:04:05"`

	// Format is json or console.
	Format string `mapstructure:"format" json:"format" yaml:"format" default:"json"`

	// Output is terminal, file or both.
	Output string `mapstructure:"output" json:"output" yaml:"output" default:"both"`

	// Rotation settings handed to lumberjack.
	MaxAge     int  `mapstructure:"max-age" json:"maxAge" yaml:"max-age" default:"7"`
	MaxSize    int  `mapstructure:"max-size" json:"maxSize" yaml:"max-size" default:"100"`
	MaxBackups int  `mapstructure:"max-backups" json:"maxBackups" yaml:"max-backups" default:"10"`
	Compress   bool `mapstructure:"compress" json:"compress" yaml:"compress"`

	ShowLineNumber bool `mapstructure:"show-line-number" json:"showLineNumber" yaml:"show-line-number"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	c.Compress = true
	c.ShowLineNumber = true
	return c
}

// applyDefaults fills empty fields from the `default` tags.
func (c *Config) applyDefaults() {
	// defaults.Set only fails for non-struct pointers.
	_ = defaults.Set(c)
}

// TransportLevel converts the string level to zapcore.Level.
func (c Config) TransportLevel() zapcore.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.DebugLevel
	}
}

// ZapEncodeLevel returns the zapcore.LevelEncoder based on EncodeLevel.
func (c Config) ZapEncodeLevel() zapcore.LevelEncoder {
	switch c.EncodeLevel {
	case "LowercaseColorLevelEncoder":
		return zapcore.LowercaseColorLevelEncoder
	case "CapitalLevelEncoder":
		return zapcore.CapitalLevelEncoder
	case "CapitalColorLevelEncoder":
		return zapcore.CapitalColorLevelEncoder
	default:
		return zapcore.LowercaseLevelEncoder
	}
}

func (c Config) writesTerminal() bool {
	return c.Output == OutputTerminal || c.Output == OutputBoth
}

func (c Config) writesFile() bool {
	return c.Output == OutputFile || c.Output == OutputBoth
}
