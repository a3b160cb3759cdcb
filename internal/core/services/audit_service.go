package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
)

// auditService writes audit events through the repository and swallows every
// failure at this boundary. An audit problem must never fail or roll back
// the operation that emitted the event.
type auditService struct {
	auditRepo portsrepo.AuditRepository
}

// NewAuditService creates the audit sink.
func NewAuditService(auditRepo portsrepo.AuditRepository) portssvc.AuditSink {
	return &auditService{auditRepo: auditRepo}
}

var _ portssvc.AuditSink = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, event domain.AuditEvent) {
	logger := middleware.GetLoggerFromCtx(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Audit sink panicked", slog.Any("panic", r))
		}
	}()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.auditRepo.RecordEvent(ctx, event); err != nil {
		logger.Warn("Audit write failed", slog.String("action", event.Action), slog.String("error", err.Error()))
	}
}
