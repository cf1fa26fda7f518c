package auditlog

import (
	"go.uber.org/zap/zapcore"
)

// DefaultCategory is used for entries logged through an unnamed zap logger
const DefaultCategory = "relayer"

// core is a zapcore.Core that records every enabled entry in a Log.
// The zap logger name becomes the entry category and the fields become its data.
type core struct {
	zapcore.LevelEnabler
	log    *Log
	fields []zapcore.Field
}

// NewCore returns a zapcore.Core feeding log. Tee it with the regular output
// core to capture all structured logging in the audit buffer.
func NewCore(log *Log, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, log: log}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := &core{
		LevelEnabler: c.LevelEnabler,
		log:          c.log,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var data map[string]any
	if len(c.fields)+len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range c.fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			f.AddTo(enc)
		}
		data = enc.Fields
	}

	category := ent.LoggerName
	if category == "" {
		category = DefaultCategory
	}

	c.log.Add(levelFromZap(ent.Level), category, ent.Message, data)
	return nil
}

func (c *core) Sync() error {
	return nil
}

func levelFromZap(l zapcore.Level) Level {
	switch {
	case l <= zapcore.DebugLevel:
		return LevelDebug
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}
