package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
)

// InsertDao creates a DAO row. Uses ON CONFLICT(id) DO NOTHING and
// reports ErrDuplicate when nothing was inserted. On success cfg.Version
// is set to 1.
func (t *Tx) InsertDao(ctx context.Context, cfg *dao.Config) error {
	signers, err := marshalIdentities(cfg.Signers)
	if err != nil {
		return fmt.Errorf("insert dao: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO daos
		(id, authority, treasury, governance_token, stake_vault, signers,
		 approval_threshold, vote_duration, total_staked, quorum, pass_percentage,
		 min_stake_to_participate, staking_yield_rate, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO NOTHING
	`,
		cfg.ID,
		string(cfg.Authority),
		string(cfg.Treasury),
		string(cfg.GovernanceToken),
		string(cfg.StakeVault),
		signers,
		int(cfg.ApprovalThreshold),
		cfg.VoteDuration,
		i64(cfg.TotalStaked),
		int64(cfg.Quorum),
		int(cfg.PassPercentage),
		i64(cfg.MinStakeToParticipate),
		int(cfg.StakingYieldRate),
		cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dao: %w", err)
	}
	if err := expectOne(result, ErrDuplicate); err != nil {
		return fmt.Errorf("insert dao %q: %w", cfg.ID, err)
	}
	cfg.Version = 1
	return nil
}

// SaveDao writes the mutable DAO fields if the stored version still
// matches cfg.Version, then bumps cfg.Version.
func (t *Tx) SaveDao(ctx context.Context, cfg *dao.Config) error {
	signers, err := marshalIdentities(cfg.Signers)
	if err != nil {
		return fmt.Errorf("save dao: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE daos SET
			signers = ?,
			approval_threshold = ?,
			total_staked = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`,
		signers,
		int(cfg.ApprovalThreshold),
		i64(cfg.TotalStaked),
		cfg.ID,
		cfg.Version,
	)
	if err != nil {
		return fmt.Errorf("save dao: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return fmt.Errorf("save dao %q: %w", cfg.ID, err)
	}
	cfg.Version++
	return nil
}

// InsertStake creates a stake record.
func (t *Tx) InsertStake(ctx context.Context, rec *dao.StakeRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO stakes (dao_id, owner, staked_amount, version)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(dao_id, owner) DO NOTHING
	`, rec.DaoID, string(rec.Owner), i64(rec.StakedAmount))
	if err != nil {
		return fmt.Errorf("insert stake: %w", err)
	}
	if err := expectOne(result, ErrDuplicate); err != nil {
		return fmt.Errorf("insert stake %s/%s: %w", rec.DaoID, rec.Owner, err)
	}
	rec.Version = 1
	return nil
}

// SaveStake updates a stake balance under version check.
func (t *Tx) SaveStake(ctx context.Context, rec *dao.StakeRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE stakes SET staked_amount = ?, version = version + 1
		WHERE dao_id = ? AND owner = ? AND version = ?
	`, i64(rec.StakedAmount), rec.DaoID, string(rec.Owner), rec.Version)
	if err != nil {
		return fmt.Errorf("save stake: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return fmt.Errorf("save stake %s/%s: %w", rec.DaoID, rec.Owner, err)
	}
	rec.Version++
	return nil
}

// DeleteStake removes a stake record under version check.
func (t *Tx) DeleteStake(ctx context.Context, rec dao.StakeRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		DELETE FROM stakes WHERE dao_id = ? AND owner = ? AND version = ?
	`, rec.DaoID, string(rec.Owner), rec.Version)
	if err != nil {
		return fmt.Errorf("delete stake: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return fmt.Errorf("delete stake %s/%s: %w", rec.DaoID, rec.Owner, err)
	}
	return nil
}

// InsertProposal creates a proposal. A reused (dao, id) pair returns
// ErrDuplicate.
func (t *Tx) InsertProposal(ctx context.Context, p *dao.Proposal) error {
	action, err := dao.MarshalAction(p.Action)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	approvals, err := marshalIdentities(p.Approvals)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO proposals
		(dao_id, id, path, proposer, action, title, description, created_at,
		 executed, executed_at, approvals, approved_at, yes_votes, no_votes,
		 voter_count, end_time, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(dao_id, id) DO NOTHING
	`,
		p.DaoID,
		i64(p.ID),
		string(p.Path),
		string(p.Proposer),
		string(action),
		p.Title,
		p.Description,
		p.CreatedAt,
		boolInt(p.Executed),
		p.ExecutedAt,
		approvals,
		nullInt64(p.ApprovedAt),
		i64(p.YesVotes),
		i64(p.NoVotes),
		int64(p.VoterCount),
		p.EndTime,
	)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	if err := expectOne(result, ErrDuplicate); err != nil {
		return fmt.Errorf("insert proposal %s/%d: %w", p.DaoID, p.ID, err)
	}
	p.Version = 1
	return nil
}

// SaveProposal writes tallies and execution state under version check.
// The action, proposer and text fields never change after creation.
func (t *Tx) SaveProposal(ctx context.Context, p *dao.Proposal) error {
	approvals, err := marshalIdentities(p.Approvals)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE proposals SET
			executed = ?,
			executed_at = ?,
			approvals = ?,
			approved_at = ?,
			yes_votes = ?,
			no_votes = ?,
			voter_count = ?,
			end_time = ?,
			version = version + 1
		WHERE dao_id = ? AND id = ? AND version = ?
	`,
		boolInt(p.Executed),
		p.ExecutedAt,
		approvals,
		nullInt64(p.ApprovedAt),
		i64(p.YesVotes),
		i64(p.NoVotes),
		int64(p.VoterCount),
		p.EndTime,
		p.DaoID,
		i64(p.ID),
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return fmt.Errorf("save proposal %s/%d: %w", p.DaoID, p.ID, err)
	}
	p.Version++
	return nil
}

// InsertVote records a ballot. A second ballot from the same voter on
// the same proposal returns ErrDuplicate.
func (t *Tx) InsertVote(ctx context.Context, v dao.VoteRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (dao_id, proposal_id, voter, choice, weight, cast_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(dao_id, proposal_id, voter) DO NOTHING
	`,
		v.DaoID,
		i64(v.ProposalID),
		string(v.Voter),
		string(v.Choice),
		i64(v.Weight),
		v.CastAt,
	)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	if err := expectOne(result, ErrDuplicate); err != nil {
		return fmt.Errorf("insert vote %s/%d/%s: %w", v.DaoID, v.ProposalID, v.Voter, err)
	}
	return nil
}

// InsertObligation creates a recurring payment.
func (t *Tx) InsertObligation(ctx context.Context, o *dao.Obligation) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO obligations
		(dao_id, recipient, amount, currency, interval_seconds, next_claimable_at, version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(dao_id, recipient) DO NOTHING
	`,
		o.DaoID,
		string(o.Recipient),
		i64(o.Amount),
		string(o.Currency),
		o.IntervalSeconds,
		o.NextClaimableAt,
	)
	if err != nil {
		return fmt.Errorf("insert obligation: %w", err)
	}
	if err := expectOne(result, ErrDuplicate); err != nil {
		return fmt.Errorf("insert obligation %s/%s: %w", o.DaoID, o.Recipient, err)
	}
	o.Version = 1
	return nil
}

// SaveObligation overwrites every obligation field under version check.
// Used both to re-arm a schedule and to advance it after a claim.
func (t *Tx) SaveObligation(ctx context.Context, o *dao.Obligation) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE obligations SET
			amount = ?,
			currency = ?,
			interval_seconds = ?,
			next_claimable_at = ?,
			version = version + 1
		WHERE dao_id = ? AND recipient = ? AND version = ?
	`,
		i64(o.Amount),
		string(o.Currency),
		o.IntervalSeconds,
		o.NextClaimableAt,
		o.DaoID,
		string(o.Recipient),
		o.Version,
	)
	if err != nil {
		return fmt.Errorf("save obligation: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return fmt.Errorf("save obligation %s/%s: %w", o.DaoID, o.Recipient, err)
	}
	o.Version++
	return nil
}

// AppendEvent writes an event to the log. Uses ON CONFLICT(id) DO NOTHING
// so re-appending an identical event is a no-op; reports whether a row
// was inserted.
func (t *Tx) AppendEvent(ctx context.Context, ev dao.Event) (bool, error) {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (id, seq, dao_id, request_id, kind, at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Seq,
		ev.DaoID,
		ev.RequestID,
		string(ev.Kind),
		ev.At,
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append event: rows affected: %w", err)
	}
	return n > 0, nil
}

// expectOne maps a zero-row write to errNone.
func expectOne(result sql.Result, errNone error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errNone
	}
	return nil
}
