// Package logging builds the zap logger used across the service. Every
// logger it returns masks personal data before entries are encoded.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/redact"
)

// Options controls logger construction.
type Options struct {
	Level   string // debug, info, warn, error
	JSON    bool
	Verbose bool
}

// New builds a production zap logger wrapped in the redacting core.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	// Stdout is reserved for the MCP transport.
	cfg.OutputPaths = []string{"stderr"}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build(zap.WrapCore(Redacting))
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Wrap applies the redacting core to an existing logger. Tests use it with
// zaptest/observer loggers.
func Wrap(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.WithOptions(zap.WrapCore(Redacting))
}

// PII returns a string field whose value is masked at the call site.
func PII(key, value string) zap.Field {
	return zap.String(key, redact.Value(key, value))
}

// Redacting wraps core so that sensitive fields are masked.
func Redacting(core zapcore.Core) zapcore.Core {
	if _, ok := core.(*redactingCore); ok {
		return core
	}
	return &redactingCore{Core: core}
}

type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(scrub(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, scrub(fields))
}

func scrub(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = scrubField(f)
	}
	return out
}

func scrubField(f zapcore.Field) zapcore.Field {
	if !redact.IsSensitiveKey(f.Key) {
		return f
	}
	switch f.Type {
	case zapcore.StringType:
		f.String = redact.Mask(f.String)
		if redact.IsSecretKey(f.Key) {
			f.String = redact.Placeholder
		}
		return f
	case zapcore.ErrorType, zapcore.BoolType, zapcore.Int64Type, zapcore.Int32Type,
		zapcore.DurationType, zapcore.TimeType, zapcore.Float64Type:
		return f
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return zap.String(f.Key, redact.Value(f.Key, s.String()))
		}
	}
	return zap.String(f.Key, redact.Placeholder)
}
