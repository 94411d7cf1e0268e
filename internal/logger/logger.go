package logger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger. JSON output is used in production or
// when requested; price-change logs are never sampled away.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithProposal adds the proposal and acting user to logger
func WithProposal(logger *zap.Logger, proposalID uuid.UUID, actorID string) *zap.Logger {
	return logger.With(
		zap.String("proposal_id", proposalID.String()),
		zap.String("actor", actorID),
	)
}

// WithJobRun tags one execution of a scheduled job with a fresh run id
func WithJobRun(logger *zap.Logger, jobName string) *zap.Logger {
	return logger.With(
		zap.String("job_name", jobName),
		zap.String("run_id", uuid.NewString()),
	)
}
