package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	common_models "salescrm/internal/common/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zapcore"
)

// LogEntry is what DBCore hands to the writer goroutine
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	Caller    string
	RequestID string
	UserID    string
	Time      time.Time
}

type logSink interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DBLogWriter persists log entries asynchronously. When the buffer is full
// entries are dropped so logging never blocks a request.
type DBLogWriter struct {
	sink    logSink
	logChan chan LogEntry
	appId   string
	done    chan struct{}
}

func NewDBLogWriter(sink logSink, appId string, buffer int) *DBLogWriter {
	writer := &DBLogWriter{
		sink:    sink,
		logChan: make(chan LogEntry, buffer),
		appId:   appId,
		done:    make(chan struct{}),
	}

	go writer.processLogs()

	return writer
}

func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		fmt.Fprintln(os.Stderr, "DB log channel full, dropping:", entry.Message)
	}
}

// Close drains pending entries and stops the worker
func (w *DBLogWriter) Close() {
	close(w.logChan)
	<-w.done
}

func (w *DBLogWriter) processLogs() {
	defer close(w.done)
	for entry := range w.logChan {
		record := common_models.Log{
			AppID:      w.appId,
			Level:      entry.Level.String(),
			LogLevelId: mapLevelToInt(entry.Level),
			Message:    entry.Message,
			Caller:     entry.Caller,
			RequestID:  entry.RequestID,
			UserID:     entry.UserID,
			CreatedAt:  entry.Time.UTC(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = w.sink.InsertOne(ctx, record)
		cancel()
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
