package logger

import (
	"go.uber.org/zap/zapcore"
)

// DBCore tees entries at or above minLevel into a DBLogWriter while still
// passing everything to the wrapped core.
type DBCore struct {
	zapcore.Core
	writer   *DBLogWriter
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter, minLevel zapcore.Level) zapcore.Core {
	return &DBCore{
		Core:     baseCore,
		writer:   writer,
		minLevel: minLevel,
	}
}

func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	return &DBCore{
		Core:     c.Core.With(fields),
		writer:   c.writer,
		minLevel: c.minLevel,
		fields:   append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= c.minLevel {
		var requestID, userID string
		for _, f := range append(c.fields, fields...) {
			switch f.Key {
			case "request_id":
				requestID = f.String
			case "user_id":
				userID = f.String
			}
		}

		c.writer.AddLog(LogEntry{
			Level:     entry.Level,
			Message:   entry.Message,
			Caller:    entry.Caller.Function,
			RequestID: requestID,
			UserID:    userID,
			Time:      entry.Time,
		})
	}

	return c.Core.Write(entry, fields)
}

func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
