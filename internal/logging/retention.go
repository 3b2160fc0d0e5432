package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupRunLogs removes per-run log files in dir older than retentionDays.
// The file belonging to keepRunID is never removed. A retentionDays value of 0
// disables pruning.
func CleanupRunLogs(logger *slog.Logger, dir string, retentionDays int, keepRunID string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := strings.TrimSpace(keepRunID)
	if keep != "" {
		keep += ".log"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".log" || name == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log prune failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "old run log remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
