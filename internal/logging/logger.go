// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared by every component that logs a submission.
const (
	KeyKind         = "kind"
	KeySubmissionID = "submission_id"
	KeyStep         = "step"
	KeyOutcome      = "outcome"
)

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// ForSubmission scopes logger to one submission.
func ForSubmission(logger *zap.Logger, kind, submissionID string) *zap.Logger {
	return logger.With(zap.String(KeyKind, kind), zap.String(KeySubmissionID, submissionID))
}

// Step tags a log line with the pipeline step it describes.
func Step(name string) zap.Field { return zap.String(KeyStep, name) }

// Outcome tags a log line with a submission outcome.
func Outcome(o string) zap.Field { return zap.String(KeyOutcome, o) }
