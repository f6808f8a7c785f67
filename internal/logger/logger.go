package logger

import (
	"salescrm/internal/config"
	"salescrm/internal/database"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger. With LOG_TO_DB enabled, warn and
// above are also persisted to the logs collection.
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Needed so the DB core can record the calling function
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	core := baseLogger.Core()
	if cfg.LogToDB && mongodb != nil {
		writer := NewDBLogWriter(mongodb.DB.Collection("logs"), cfg.AppId, 1000)
		core = NewDBCore(core, writer, zapcore.WarnLevel)
	}

	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)
	return logger, nil
}
