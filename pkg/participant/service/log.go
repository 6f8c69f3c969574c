package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/participant"
)

const serviceName = "RegistrationService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the registration Service.
// It logs method entry/exit, duration, errors, and request/response data.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Register wraps the service method with logging
func (ls *logService) Register(ctx context.Context, req *participant.RegisterRequest) (resp *participant.RegisterResponse, err error) {
	start := time.Now()

	ls.logger.Info("Register started",
		zap.String("service", serviceName),
		zap.String("method", "Register"),
		zap.String("role", req.Role),
		zap.String("name", req.Name),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Register failed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Register completed",
				zap.String("service", serviceName),
				zap.String("method", "Register"),
				zap.String("subject", resp.Subject),
				zap.String("role", resp.Role),
				zap.Int64("seq_no", resp.SeqNo),
				zap.String("fingerprint", resp.Fingerprint),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Register(ctx, req)
}

// GetProfile wraps the service method with logging
func (ls *logService) GetProfile(ctx context.Context, role credential.Role) (resp *participant.ProfileResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("GetProfile failed",
				zap.String("service", serviceName),
				zap.String("method", "GetProfile"),
				zap.String("role", string(role)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("GetProfile completed",
				zap.String("service", serviceName),
				zap.String("method", "GetProfile"),
				zap.String("subject", resp.Subject),
				zap.String("role", resp.Role),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.GetProfile(ctx, role)
}
