package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/pass"
)

const serviceName = "PassService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the pass Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// RequestPass wraps the service method with logging
func (ls *logService) RequestPass(ctx context.Context) (resp *pass.IssueResponse, err error) {
	start := time.Now()

	ls.logger.Info("RequestPass started",
		zap.String("service", serviceName),
		zap.String("method", "RequestPass"),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("RequestPass failed",
				zap.String("service", serviceName),
				zap.String("method", "RequestPass"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RequestPass completed",
				zap.String("service", serviceName),
				zap.String("method", "RequestPass"),
				zap.String("subject", resp.Subject),
				zap.Uint64("pass_id", resp.PassID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.RequestPass(ctx)
}

// MarkPaid wraps the service method with logging
func (ls *logService) MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (resp *pass.PaidResponse, err error) {
	start := time.Now()

	ls.logger.Info("MarkPaid started",
		zap.String("service", serviceName),
		zap.String("method", "MarkPaid"),
		zap.String("subject", req.Subject),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("MarkPaid failed",
				zap.String("service", serviceName),
				zap.String("method", "MarkPaid"),
				zap.String("subject", req.Subject),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("MarkPaid completed",
				zap.String("service", serviceName),
				zap.String("method", "MarkPaid"),
				zap.String("subject", resp.Subject),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.MarkPaid(ctx, req)
}

// QueryPaid wraps the service method with logging
func (ls *logService) QueryPaid(ctx context.Context, subject string) (resp *pass.PaidResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("QueryPaid failed",
				zap.String("service", serviceName),
				zap.String("method", "QueryPaid"),
				zap.String("subject", subject),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("QueryPaid completed",
				zap.String("service", serviceName),
				zap.String("method", "QueryPaid"),
				zap.String("subject", subject),
				zap.Bool("paid", resp.Paid),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.QueryPaid(ctx, subject)
}
