package logger

import (
	"go.uber.org/zap/zapcore"
)

// DBCore is a custom Zap Core that intercepts logs
type DBCore struct {
	zapcore.Core
	writer *DBLogWriter
}

// NewDBCore wraps an existing core (like console logger) and adds DB logging
func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter) zapcore.Core {
	return &DBCore{
		Core:   baseCore,
		writer: writer,
	}
}

func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	return &DBCore{
		Core:   c.Core.With(fields),
		writer: c.writer,
	}
}

func (c *DBCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var companyID string
	for _, f := range fields {
		if f.Key == "company_id" {
			companyID = f.String
		}
	}

	c.writer.AddLog(LogEntry{
		Level:     entry.Level,
		Message:   entry.Message,
		CompanyID: companyID,
		Caller:    entry.Caller.Function,
	})

	return c.Core.Write(entry, fields)
}
