package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

const maxAuditedHeightQuery = `
SELECT count() AS audited, coalesce(max(height), toUInt64(0)) AS max_height
FROM retarget_audit
WHERE network = ?`

// MaxAuditedHeight returns the highest audited height of network. ok is false
// when nothing was audited yet.
func (r *Repository) MaxAuditedHeight(ctx context.Context, network model.Network) (height uint64, ok bool, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("max_audited_height", network, err, start)
	}()

	rows, err := r.conn.Query(ctx, maxAuditedHeightQuery, string(network))
	if err != nil {
		return 0, false, fmt.Errorf("query max audited height: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		return 0, false, errors.New("max audited height not found")
	}

	var audited uint64
	if err = rows.Scan(&audited, &height); err != nil {
		return 0, false, fmt.Errorf("scan max audited height: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, false, fmt.Errorf("iterate max audited height: %w", err)
	}

	return height, audited > 0, nil
}
