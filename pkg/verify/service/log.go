package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/verify"
)

const serviceName = "VerificationService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the verification Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Verify wraps the service method with logging
func (ls *logService) Verify(ctx context.Context, passID uint64) (resp *verify.Result, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("Verify failed",
				zap.String("service", serviceName),
				zap.String("method", "Verify"),
				zap.Uint64("pass_id", passID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Verify completed",
				zap.String("service", serviceName),
				zap.String("method", "Verify"),
				zap.Uint64("pass_id", passID),
				zap.String("subject", resp.Subject),
				zap.Int64("seq_no", resp.SeqNo),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Verify(ctx, passID)
}
