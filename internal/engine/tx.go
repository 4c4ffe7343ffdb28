package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/treasury/internal/custody"
	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// op is the state of one attempt of one governance operation: the open
// transaction, the custodian bound to it, the time read for this attempt,
// and the events staged for append at commit.
type op struct {
	ctx       context.Context
	tx        *store.Tx
	custodian custody.Custodian
	now       int64
	requestID string

	staged []stagedEvent
}

type stagedEvent struct {
	daoID   string
	kind    dao.EventKind
	payload map[string]any
}

// emit stages an event. Events only reach storage if the operation
// commits.
func (o *op) emit(daoID string, kind dao.EventKind, payload map[string]any) {
	o.staged = append(o.staged, stagedEvent{daoID: daoID, kind: kind, payload: payload})
}

func (o *op) loadDao(daoID string) (dao.Config, error) {
	cfg, err := o.tx.GetDao(o.ctx, daoID)
	if err != nil {
		return dao.Config{}, daoLookup(err, daoID)
	}
	return cfg, nil
}

func (o *op) loadProposal(daoID string, id uint64) (dao.Proposal, error) {
	p, err := o.tx.GetProposal(o.ctx, daoID, id)
	if err != nil {
		return dao.Proposal{}, proposalLookup(err, daoID, id)
	}
	return p, nil
}

// stakeOf returns owner's stake record. A missing record reads as a
// zero-balance record with Version 0.
func (o *op) stakeOf(daoID string, owner dao.Identity) (dao.StakeRecord, error) {
	rec, err := o.tx.GetStake(o.ctx, daoID, owner)
	if errors.Is(err, store.ErrNotFound) {
		return dao.StakeRecord{DaoID: daoID, Owner: owner}, nil
	}
	return rec, err
}

// update runs fn as one atomic operation named name.
//
// Each attempt opens a transaction, reads the clock, binds the custodian
// and runs fn. Staged events are appended with consecutive seqs before
// commit and queued for the sink after. A conflict retries the whole
// attempt from a fresh read; any other error rolls back and, for
// non-transactional custodians, reverses the attempt's transfers.
func (e *Engine) update(ctx context.Context, name string, fn func(o *op) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	requestID := e.ids.Generate()

	var events []dao.Event
	err := withRetry(name, e.maxRetries, func(attempt int) error {
		if attempt > 1 {
			e.logger.Warn("retrying after conflict", "op", name, "attempt", attempt, "request_id", requestID)
		}
		var err error
		events, err = e.attempt(ctx, requestID, fn)
		return err
	})
	if err != nil {
		e.logger.Debug("operation rejected", "op", name, "request_id", requestID, "error", err)
		return err
	}

	if n := len(events); n > 0 {
		e.seq.Observe(events[n-1].Seq)
	}
	if e.sink != nil {
		e.queue.Enqueue(events...)
	}

	e.logger.Info("operation committed", "op", name, "request_id", requestID, "events", len(events))
	return nil
}

func (e *Engine) attempt(ctx context.Context, requestID string, fn func(o *op) error) ([]dao.Event, error) {
	var (
		journal *custody.Journal
		events  []dao.Event
	)

	err := e.store.Update(ctx, func(tx *store.Tx) error {
		o := &op{
			ctx:       ctx,
			tx:        tx,
			now:       e.clock.Now(),
			requestID: requestID,
		}
		if b, ok := e.custodian.(custody.Binder); ok {
			o.custodian = b.Bind(tx)
		} else {
			journal = custody.NewJournal(e.custodian)
			o.custodian = journal
		}

		if err := fn(o); err != nil {
			return err
		}

		var err error
		events, err = e.appendStaged(o)
		return err
	})
	if err != nil && journal != nil {
		if cerr := journal.Compensate(ctx); cerr != nil {
			e.logger.Error("compensation failed: custodian balances need manual repair",
				"request_id", requestID,
				"error", cerr,
			)
			return nil, fmt.Errorf("%w (compensation failed: %v)", err, cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	if journal != nil {
		e.logger.Debug("custodian transfers committed", "request_id", requestID, "transfers", len(journal.Transfers()))
		journal.Reset()
	}
	return events, nil
}

// appendStaged persists o's staged events after the highest seq seen by
// either this engine or the store. The sequencer itself only advances
// after commit.
func (e *Engine) appendStaged(o *op) ([]dao.Event, error) {
	if len(o.staged) == 0 {
		return nil, nil
	}
	base, err := o.tx.LastSeq(o.ctx)
	if err != nil {
		return nil, err
	}
	base = max(base, e.seq.Current())
	events := make([]dao.Event, 0, len(o.staged))
	for i, s := range o.staged {
		ev, err := dao.NewEvent(s.daoID, o.requestID, base+int64(i)+1, s.kind, o.now, s.payload)
		if err != nil {
			return nil, fmt.Errorf("build %s event: %w", s.kind, err)
		}
		inserted, err := o.tx.AppendEvent(o.ctx, ev)
		if err != nil {
			return nil, err
		}
		if !inserted {
			return nil, fmt.Errorf("append event seq %d: %w", ev.Seq, store.ErrConflict)
		}
		events = append(events, ev)
	}
	return events, nil
}
