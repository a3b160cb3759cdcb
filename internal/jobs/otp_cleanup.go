package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
)

// OTPCleanupJob periodically removes consumed and stale OTP challenges so the
// table stays small. Rows inside an active block window are kept so repeated
// verification attempts still report the block.
type OTPCleanupJob struct {
	otpRepo repositories.OTPRepository
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewOTPCleanupJob creates the job. Call Start to schedule it.
func NewOTPCleanupJob(otpRepo repositories.OTPRepository, logger *slog.Logger) *OTPCleanupJob {
	return &OTPCleanupJob{
		otpRepo: otpRepo,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the purge every 10 minutes and begins the scheduler.
func (j *OTPCleanupJob) Start() error {
	if _, err := j.cron.AddFunc("@every 10m", j.run); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (j *OTPCleanupJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *OTPCleanupJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := j.otpRepo.PurgeStale(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("otp purge failed", slog.Any("error", err))
		return
	}
	if purged > 0 {
		j.logger.Info("purged stale otp challenges", slog.Int64("count", purged))
	}
}
