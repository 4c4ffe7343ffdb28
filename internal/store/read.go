package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const daoColumns = `id, authority, treasury, governance_token, stake_vault, signers,
	approval_threshold, vote_duration, total_staked, quorum, pass_percentage,
	min_stake_to_participate, staking_yield_rate, created_at, version`

// GetDao returns the configuration of a DAO, or ErrNotFound.
func (t *Tx) GetDao(ctx context.Context, id string) (dao.Config, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+daoColumns+` FROM daos WHERE id = ?`, id)
	cfg, err := scanDao(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Config{}, fmt.Errorf("dao %q: %w", id, ErrNotFound)
	}
	return cfg, err
}

// ListDaos returns every DAO ordered by id.
func (t *Tx) ListDaos(ctx context.Context) ([]dao.Config, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+daoColumns+` FROM daos ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query daos: %w", err)
	}
	defer rows.Close()

	daos := []dao.Config{}
	for rows.Next() {
		cfg, err := scanDao(rows)
		if err != nil {
			return nil, err
		}
		daos = append(daos, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daos: %w", err)
	}
	return daos, nil
}

func scanDao(s scanner) (dao.Config, error) {
	var (
		cfg                                  dao.Config
		authority, treasury, token, vault    string
		signers                              string
		threshold, passPct, yieldRate        int
		totalStaked, quorum, minStake        int64
	)
	err := s.Scan(
		&cfg.ID, &authority, &treasury, &token, &vault, &signers,
		&threshold, &cfg.VoteDuration, &totalStaked, &quorum, &passPct,
		&minStake, &yieldRate, &cfg.CreatedAt, &cfg.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.Config{}, err
		}
		return dao.Config{}, fmt.Errorf("scan dao: %w", err)
	}
	ids, err := unmarshalIdentities(signers)
	if err != nil {
		return dao.Config{}, err
	}
	cfg.Authority = dao.Identity(authority)
	cfg.Treasury = dao.Identity(treasury)
	cfg.GovernanceToken = dao.Asset(token)
	cfg.StakeVault = dao.Identity(vault)
	cfg.Signers = ids
	cfg.ApprovalThreshold = uint8(threshold)
	cfg.TotalStaked = u64(totalStaked)
	cfg.Quorum = uint32(quorum)
	cfg.PassPercentage = uint8(passPct)
	cfg.MinStakeToParticipate = u64(minStake)
	cfg.StakingYieldRate = uint16(yieldRate)
	return cfg, nil
}

// GetStake returns a participant's stake record, or ErrNotFound.
func (t *Tx) GetStake(ctx context.Context, daoID string, owner dao.Identity) (dao.StakeRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT dao_id, owner, staked_amount, version
		FROM stakes WHERE dao_id = ? AND owner = ?
	`, daoID, string(owner))
	rec, err := scanStake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.StakeRecord{}, fmt.Errorf("stake %s/%s: %w", daoID, owner, ErrNotFound)
	}
	return rec, err
}

// ListStakes returns every stake record of a DAO ordered by owner.
func (t *Tx) ListStakes(ctx context.Context, daoID string) ([]dao.StakeRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT dao_id, owner, staked_amount, version
		FROM stakes WHERE dao_id = ?
		ORDER BY owner COLLATE BINARY ASC
	`, daoID)
	if err != nil {
		return nil, fmt.Errorf("query stakes: %w", err)
	}
	defer rows.Close()

	stakes := []dao.StakeRecord{}
	for rows.Next() {
		rec, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stakes: %w", err)
	}
	return stakes, nil
}

func scanStake(s scanner) (dao.StakeRecord, error) {
	var (
		rec    dao.StakeRecord
		owner  string
		amount int64
	)
	if err := s.Scan(&rec.DaoID, &owner, &amount, &rec.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.StakeRecord{}, err
		}
		return dao.StakeRecord{}, fmt.Errorf("scan stake: %w", err)
	}
	rec.Owner = dao.Identity(owner)
	rec.StakedAmount = u64(amount)
	return rec, nil
}

const proposalColumns = `dao_id, id, path, proposer, action, title, description, created_at,
	executed, executed_at, approvals, approved_at, yes_votes, no_votes,
	voter_count, end_time, version`

// GetProposal returns a proposal, or ErrNotFound.
func (t *Tx) GetProposal(ctx context.Context, daoID string, id uint64) (dao.Proposal, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE dao_id = ? AND id = ?
	`, daoID, i64(id))
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Proposal{}, fmt.Errorf("proposal %s/%d: %w", daoID, id, ErrNotFound)
	}
	return p, err
}

// ListProposals returns every proposal of a DAO ordered by id. IDs of
// 2^63 and above are stored as negative INTEGERs and sort after the rest.
func (t *Tx) ListProposals(ctx context.Context, daoID string) ([]dao.Proposal, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE dao_id = ?
		ORDER BY id < 0 ASC, id ASC
	`, daoID)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	proposals := []dao.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return proposals, nil
}

func scanProposal(s scanner) (dao.Proposal, error) {
	var (
		p                         dao.Proposal
		id, yes, no, voterCount   int64
		path, proposer, action    string
		approvals                 string
		executed                  int
		approvedAt                sql.NullInt64
	)
	err := s.Scan(
		&p.DaoID, &id, &path, &proposer, &action, &p.Title, &p.Description, &p.CreatedAt,
		&executed, &p.ExecutedAt, &approvals, &approvedAt, &yes, &no,
		&voterCount, &p.EndTime, &p.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.Proposal{}, err
		}
		return dao.Proposal{}, fmt.Errorf("scan proposal: %w", err)
	}
	a, err := dao.UnmarshalAction([]byte(action))
	if err != nil {
		return dao.Proposal{}, fmt.Errorf("scan proposal %s/%d: %w", p.DaoID, id, err)
	}
	ids, err := unmarshalIdentities(approvals)
	if err != nil {
		return dao.Proposal{}, err
	}
	p.ID = u64(id)
	p.Path = dao.Path(path)
	p.Proposer = dao.Identity(proposer)
	p.Action = a
	p.Executed = executed != 0
	p.Approvals = ids
	p.ApprovedAt = ptrInt64(approvedAt)
	p.YesVotes = u64(yes)
	p.NoVotes = u64(no)
	p.VoterCount = uint32(voterCount)
	return p, nil
}

// GetVote returns a voter's ballot on a proposal, or ErrNotFound.
func (t *Tx) GetVote(ctx context.Context, daoID string, proposalID uint64, voter dao.Identity) (dao.VoteRecord, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT dao_id, proposal_id, voter, choice, weight, cast_at
		FROM votes WHERE dao_id = ? AND proposal_id = ? AND voter = ?
	`, daoID, i64(proposalID), string(voter))
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.VoteRecord{}, fmt.Errorf("vote %s/%d/%s: %w", daoID, proposalID, voter, ErrNotFound)
	}
	return v, err
}

// ListVotes returns the ballots on a proposal ordered by cast time, then
// voter.
func (t *Tx) ListVotes(ctx context.Context, daoID string, proposalID uint64) ([]dao.VoteRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT dao_id, proposal_id, voter, choice, weight, cast_at
		FROM votes WHERE dao_id = ? AND proposal_id = ?
		ORDER BY cast_at ASC, voter COLLATE BINARY ASC
	`, daoID, i64(proposalID))
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	votes := []dao.VoteRecord{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return votes, nil
}

func scanVote(s scanner) (dao.VoteRecord, error) {
	var (
		v                   dao.VoteRecord
		proposalID, weight  int64
		voter, choice       string
	)
	if err := s.Scan(&v.DaoID, &proposalID, &voter, &choice, &weight, &v.CastAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.VoteRecord{}, err
		}
		return dao.VoteRecord{}, fmt.Errorf("scan vote: %w", err)
	}
	v.ProposalID = u64(proposalID)
	v.Voter = dao.Identity(voter)
	v.Choice = dao.VoteChoice(choice)
	v.Weight = u64(weight)
	return v, nil
}

// GetObligation returns the recurring payment for a recipient, or
// ErrNotFound.
func (t *Tx) GetObligation(ctx context.Context, daoID string, recipient dao.Identity) (dao.Obligation, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT dao_id, recipient, amount, currency, interval_seconds, next_claimable_at, version
		FROM obligations WHERE dao_id = ? AND recipient = ?
	`, daoID, string(recipient))
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Obligation{}, fmt.Errorf("obligation %s/%s: %w", daoID, recipient, ErrNotFound)
	}
	return o, err
}

// ListObligations returns every obligation of a DAO ordered by recipient.
func (t *Tx) ListObligations(ctx context.Context, daoID string) ([]dao.Obligation, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT dao_id, recipient, amount, currency, interval_seconds, next_claimable_at, version
		FROM obligations WHERE dao_id = ?
		ORDER BY recipient COLLATE BINARY ASC
	`, daoID)
	if err != nil {
		return nil, fmt.Errorf("query obligations: %w", err)
	}
	defer rows.Close()

	obligations := []dao.Obligation{}
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate obligations: %w", err)
	}
	return obligations, nil
}

func scanObligation(s scanner) (dao.Obligation, error) {
	var (
		o                   dao.Obligation
		recipient, currency string
		amount              int64
	)
	if err := s.Scan(&o.DaoID, &recipient, &amount, &currency, &o.IntervalSeconds, &o.NextClaimableAt, &o.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dao.Obligation{}, err
		}
		return dao.Obligation{}, fmt.Errorf("scan obligation: %w", err)
	}
	o.Recipient = dao.Identity(recipient)
	o.Currency = dao.Asset(currency)
	o.Amount = u64(amount)
	return o, nil
}
