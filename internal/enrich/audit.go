package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

// waitForRecord polls for the target row's existence. The row is created by
// the upstream caller that triggered enrichment and may not be committed
// yet when the match response or webhook callback arrives; a bounded
// retry-with-delay loop mitigates that race without eliminating it.
func waitForRecord(ctx context.Context, st store.Store, table, recordID string, attempts int, delay time.Duration) bool {
	for attempt := 0; attempt < attempts; attempt++ {
		exists, err := st.RecordExists(ctx, table, recordID)
		if err != nil {
			zap.L().Warn("record existence check failed",
				zap.String("table", table),
				zap.String("record_id", recordID),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		} else if exists {
			return true
		}

		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	return false
}

// appendAudit writes one enrichment_logs row. Audit failures are logged,
// never escalated.
func appendAudit(ctx context.Context, st store.Store, entry model.EnrichmentLogEntry) {
	if err := st.AppendEnrichmentLog(ctx, entry); err != nil {
		zap.L().Error("enrichment audit log write failed",
			zap.String("record_id", entry.RecordID),
			zap.String("table", entry.TableName),
			zap.String("method", entry.Method),
			zap.Error(err),
		)
	}
}
