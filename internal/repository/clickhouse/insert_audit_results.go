package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

const insertAuditResultsQuery = `
INSERT INTO retarget_audit (
	network,
	height,
	hash,
	algo,
	timestamp,
	bits,
	expected_bits,
	bits_match,
	history_truncated,
	pow_checked,
	pow_valid
) VALUES`

// InsertAuditResults stores audit rows. Rows for an already audited height
// replace the earlier ones on merge.
func (r *Repository) InsertAuditResults(ctx context.Context, results []model.AuditResult) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_audit_results", firstNetwork(results), err, start)
	}()

	if len(results) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertAuditResultsQuery)
	if err != nil {
		return fmt.Errorf("prepare audit batch: %w", err)
	}

	for _, res := range results {
		if err = batch.Append(
			string(res.Network),
			res.Height,
			res.Hash,
			res.Algo,
			res.Timestamp,
			res.Bits,
			res.ExpectedBits,
			res.BitsMatch,
			res.HistoryTruncated,
			res.PowChecked,
			res.PowValid,
		); err != nil {
			return fmt.Errorf("append audit result %d: %w", res.Height, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert audit results: %w", err)
	}
	return nil
}
