package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
)

// Snapshot is the document written by ExportSnapshot.
type Snapshot struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Policy      domain.MilestonePolicy `json:"policy"`
	Stats       domain.LedgerStats     `json:"stats"`
	Accounts    []domain.Account       `json:"accounts"`
}

// ReportLedgerStats logs aggregate ledger figures
func (jr *JobRunner) ReportLedgerStats() {
	jr.runWithRecovery("ReportLedgerStats", func() error {
		return jr.reportLedgerStats(context.Background())
	})
}

func (jr *JobRunner) reportLedgerStats(ctx context.Context) error {
	stats, err := jr.svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute ledger stats: %w", err)
	}
	logger.Info("Ledger stats",
		"accounts", stats.Accounts,
		"total_invites", stats.TotalInvites,
		"eligible_accounts", stats.EligibleAccounts,
		"keys_issued", stats.KeysIssued,
	)
	return nil
}

// ExportSnapshot writes every account to scheduler.snapshot_path. The file
// is replaced atomically so readers never observe a partial snapshot.
func (jr *JobRunner) ExportSnapshot() {
	jr.runWithRecovery("ExportSnapshot", func() error {
		return jr.exportSnapshot(context.Background(), time.Now().UTC())
	})
}

func (jr *JobRunner) exportSnapshot(ctx context.Context, now time.Time) error {
	accounts, err := jr.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	stats, err := jr.svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute ledger stats: %w", err)
	}

	snap := Snapshot{
		GeneratedAt: now,
		Policy:      jr.svc.Policy(),
		Stats:       *stats,
		Accounts:    accounts,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := jr.config.Scheduler.SnapshotPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	logger.Info("Snapshot exported", "path", path, "accounts", len(accounts))
	return nil
}
