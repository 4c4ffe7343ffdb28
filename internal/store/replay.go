package store

import (
	"context"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
)

// LastSeq returns the highest event seq in the store.
// Used on startup to resume the logical clock from the correct position.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// LastSeq is Store.LastSeq inside a transaction. A writer reads it to
// pick the seqs of the events it appends.
func (t *Tx) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// ListEvents returns the events of a DAO with seq > afterSeq, ordered by
// seq. An empty daoID lists events of every DAO.
func (t *Tx) ListEvents(ctx context.Context, daoID string, afterSeq int64) ([]dao.Event, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, seq, dao_id, request_id, kind, at, payload
		FROM events
		WHERE (? = '' OR dao_id = ?) AND seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, daoID, daoID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []dao.Event{}
	for rows.Next() {
		var (
			ev      dao.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.DaoID, &ev.RequestID, &kind, &ev.At, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = dao.EventKind(kind)
		ev.Payload, err = unmarshalPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ExecutedProposalIDs returns the proposal ids that have a
// ProposalExecuted event, used by the audit to cross-check proposal rows.
func (t *Tx) ExecutedProposalIDs(ctx context.Context, daoID string) (map[uint64]bool, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT json_extract(payload, '$.proposal_id')
		FROM events
		WHERE dao_id = ? AND kind = ?
	`, daoID, string(dao.EventProposalExecuted))
	if err != nil {
		return nil, fmt.Errorf("query executed proposals: %w", err)
	}
	defer rows.Close()

	ids := map[uint64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan executed proposal: %w", err)
		}
		ids[u64(id)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executed proposals: %w", err)
	}
	return ids, nil
}
