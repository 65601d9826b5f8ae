package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"finsheet/internal/core"
	"finsheet/internal/log"
)

// sortableTime has fixed width so occurred_at sorts as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// RecordEvent stores a ledger event once. Redelivered events are ignored and
// reported with inserted == false.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, ev core.LedgerEvent) (bool, error) {
	if ev.ID == "" {
		return false, fmt.Errorf("record event: missing id")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_events (id, kind, partition, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Kind), ev.Partition, string(payload), ev.OccurredAt.UTC().Format(sortableTime))
	if err != nil {
		return false, fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "Duplicate ledger event ignored", log.FieldEventID, ev.ID)
	}
	return n > 0, nil
}

// ListEvents returns up to limit journal entries, newest first. An empty
// partition lists every partition.
func (r *SQLiteRepository) ListEvents(ctx context.Context, partition string, limit int) ([]core.LedgerEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var payloads []string
	var err error
	if partition == "" {
		err = r.db.SelectContext(ctx, &payloads, `
			SELECT payload FROM ledger_events
			ORDER BY occurred_at DESC, recorded_at DESC LIMIT ?`, limit)
	} else {
		err = r.db.SelectContext(ctx, &payloads, `
			SELECT payload FROM ledger_events WHERE partition = ?
			ORDER BY occurred_at DESC, recorded_at DESC LIMIT ?`, partition, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]core.LedgerEvent, 0, len(payloads))
	for _, p := range payloads {
		var ev core.LedgerEvent
		if err := json.Unmarshal([]byte(p), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// CountEvents returns the journal size.
func (r *SQLiteRepository) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM ledger_events`); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
