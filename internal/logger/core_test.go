package logger

import (
	"context"
	"testing"

	common_models "salescrm/internal/common/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSink struct {
	docs []common_models.Log
}

func (f *fakeSink) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	f.docs = append(f.docs, document.(common_models.Log))
	return &mongo.InsertOneResult{}, nil
}

func TestDBCorePersistsWarnAndAbove(t *testing.T) {
	sink := &fakeSink{}
	writer := NewDBLogWriter(sink, "salescrm-test", 10)
	base, observed := observer.New(zapcore.DebugLevel)

	log := zap.New(NewDBCore(base, writer, zapcore.WarnLevel)).With(zap.String("request_id", "req-1"))
	log.Info("listing contacts")
	log.Warn("duplicate custom field value", zap.String("user_id", "u-42"))
	writer.Close()

	if observed.Len() != 2 {
		t.Fatalf("console core got %d entries, want 2", observed.Len())
	}
	if len(sink.docs) != 1 {
		t.Fatalf("persisted %d entries, want 1", len(sink.docs))
	}

	got := sink.docs[0]
	if got.Message != "duplicate custom field value" || got.Level != "warn" {
		t.Errorf("unexpected record %+v", got)
	}
	if got.RequestID != "req-1" || got.UserID != "u-42" {
		t.Errorf("context fields not captured: %+v", got)
	}
	if got.LogLevelId != 30 || got.AppID != "salescrm-test" {
		t.Errorf("unexpected level id/app id: %+v", got)
	}
}

func TestAddLogDropsWhenFull(t *testing.T) {
	w := &DBLogWriter{logChan: make(chan LogEntry, 1), done: make(chan struct{})}
	w.AddLog(LogEntry{Message: "first"})
	w.AddLog(LogEntry{Message: "second"})

	if len(w.logChan) != 1 {
		t.Fatalf("buffered %d entries, want 1", len(w.logChan))
	}
}
