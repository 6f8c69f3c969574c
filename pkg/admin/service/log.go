package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/pass"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

const serviceName = "AdminControlPlane"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the admin Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) log(method string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		ls.logger.Error(method+" failed", append(fields, zap.Error(err))...)
		return
	}
	ls.logger.Info(method+" completed", fields...)
}

// AddEligible wraps the service method with logging
func (ls *logService) AddEligible(ctx context.Context, req *whitelist.AddRequest) (resp *whitelist.EntryResponse, err error) {
	start := time.Now()
	defer func() {
		ls.log("AddEligible", start, err, zap.String("role", req.Role))
	}()
	return ls.svc.AddEligible(ctx, req)
}

// RemoveEligible wraps the service method with logging
func (ls *logService) RemoveEligible(ctx context.Context, req *whitelist.RemoveRequest) (err error) {
	start := time.Now()
	defer func() {
		ls.log("RemoveEligible", start, err, zap.String("role", req.Role))
	}()
	return ls.svc.RemoveEligible(ctx, req)
}

// ListEligible wraps the service method with logging
func (ls *logService) ListEligible(ctx context.Context, role credential.Role) (resp []*whitelist.EntryResponse, err error) {
	start := time.Now()
	defer func() {
		ls.log("ListEligible", start, err, zap.String("role", string(role)), zap.Int("count", len(resp)))
	}()
	return ls.svc.ListEligible(ctx, role)
}

// Revoke wraps the service method with logging
func (ls *logService) Revoke(ctx context.Context, req *whitelist.RemoveRequest) (err error) {
	start := time.Now()
	defer func() {
		ls.log("Revoke", start, err, zap.String("role", req.Role))
	}()
	return ls.svc.Revoke(ctx, req)
}

// MarkPaid wraps the service method with logging
func (ls *logService) MarkPaid(ctx context.Context, req *pass.MarkPaidRequest) (resp *pass.PaidResponse, err error) {
	start := time.Now()
	defer func() {
		ls.log("MarkPaid", start, err, zap.String("subject", req.Subject))
	}()
	return ls.svc.MarkPaid(ctx, req)
}

// QueryPaid wraps the service method with logging
func (ls *logService) QueryPaid(ctx context.Context, subject string) (resp *pass.PaidResponse, err error) {
	start := time.Now()
	defer func() {
		ls.log("QueryPaid", start, err, zap.String("subject", subject))
	}()
	return ls.svc.QueryPaid(ctx, subject)
}

// ListEvents wraps the service method with logging
func (ls *logService) ListEvents(ctx context.Context, limit int) (resp []*events.Response, err error) {
	start := time.Now()
	defer func() {
		ls.log("ListEvents", start, err, zap.Int("limit", limit), zap.Int("count", len(resp)))
	}()
	return ls.svc.ListEvents(ctx, limit)
}
