package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"corebank/internal/domain/account"
	"corebank/internal/infrastructure/monitoring"
)

// MarkDormantJob flags active accounts with no transactions inside the
// dormancy window. It runs on a cron schedule from main.
type MarkDormantJob struct {
	accountRepo  account.Repository
	dormancyDays int
	logger       *slog.Logger
}

func NewMarkDormantJob(accountRepo account.Repository, dormancyDays int, logger *slog.Logger) *MarkDormantJob {
	if accountRepo == nil || logger == nil {
		panic("MarkDormantJob dependencies cannot be nil")
	}
	return &MarkDormantJob{
		accountRepo:  accountRepo,
		dormancyDays: dormancyDays,
		logger:       logger.With("job", "MarkDormant"),
	}
}

func (j *MarkDormantJob) Run(ctx context.Context) error {
	startTime := time.Now()
	cutoff := startTime.AddDate(0, 0, -j.dormancyDays)
	j.logger.InfoContext(ctx, "Starting account dormancy job.", slog.Time("cutoff", cutoff))

	candidates, err := j.accountRepo.FindActiveAccountsInactiveSince(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to find inactive accounts, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to find inactive accounts: %w", err)
	}

	if len(candidates) == 0 {
		j.logger.InfoContext(ctx, "No accounts to mark dormant.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var markedCount, errorCount int
	for _, acc := range candidates {
		logCtx := j.logger.With(slog.String("account", acc.Number))

		if err := j.accountRepo.SetAccountStatus(ctx, acc.ID, account.StatusDormant); err != nil {
			logCtx.ErrorContext(ctx, "Failed to mark account dormant", slog.Any("error", err))
			errorCount++
			continue
		}

		monitoring.RecordAccountMarkedDormant()
		logCtx.InfoContext(ctx, "Account marked dormant.")
		markedCount++
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("candidates", len(candidates)),
		slog.Int("marked_dormant", markedCount),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Account dormancy job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Account dormancy job finished successfully.")
	return nil
}
