package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

const anomaliesQuery = `
SELECT network, height, hash, algo, timestamp, bits, expected_bits, bits_match, history_truncated, pow_checked, pow_valid
FROM retarget_audit FINAL
WHERE network = ? AND ((NOT bits_match AND NOT history_truncated) OR (pow_checked AND NOT pow_valid))
ORDER BY height DESC
LIMIT ?`

// Anomalies returns the most recent audited blocks whose bits differ from the
// recomputed value or whose proof of work failed, newest first. Rows audited
// without enough history are not anomalies.
func (r *Repository) Anomalies(ctx context.Context, network model.Network, limit uint32) (results []model.AuditResult, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("anomalies", network, err, start)
	}()

	rows, err := r.conn.Query(ctx, anomaliesQuery, string(network), limit)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var (
			res        model.AuditResult
			rowNetwork string
		)
		if err = rows.Scan(
			&rowNetwork,
			&res.Height,
			&res.Hash,
			&res.Algo,
			&res.Timestamp,
			&res.Bits,
			&res.ExpectedBits,
			&res.BitsMatch,
			&res.HistoryTruncated,
			&res.PowChecked,
			&res.PowValid,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		res.Network = model.Network(rowNetwork)
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomalies: %w", err)
	}
	return results, nil
}
