package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/samber/lo"

	"github.com/roach88/treasury/internal/dao"
	"github.com/roach88/treasury/internal/store"
)

// InitializeDao creates a DAO from cfg. When cfg names no signers the
// authority becomes the sole signer. TotalStaked and CreatedAt are set by
// the engine; whatever the caller put there is ignored.
func (e *Engine) InitializeDao(ctx context.Context, cfg dao.Config) (dao.Config, error) {
	if cfg.ApprovalThreshold == 0 {
		return dao.Config{}, dao.ErrInvalidThreshold
	}
	if cfg.VoteDuration <= 0 {
		return dao.Config{}, dao.ErrInvalidVoteDuration.With("vote_duration", strconv.FormatInt(cfg.VoteDuration, 10))
	}
	if cfg.PassPercentage > dao.MaxPassPercentage {
		return dao.Config{}, dao.ErrInvalidPassPercentage.With("pass_percentage", strconv.Itoa(int(cfg.PassPercentage)))
	}

	cfg = cfg.Clone()
	if len(cfg.Signers) == 0 {
		cfg.Signers = []dao.Identity{cfg.Authority}
	}
	cfg.TotalStaked = 0
	cfg.Version = 0

	var created dao.Config
	err := e.update(ctx, "initialize_dao", func(o *op) error {
		c := cfg.Clone()
		c.CreatedAt = o.now
		if err := c.Validate(); err != nil {
			return err
		}
		if err := o.tx.InsertDao(o.ctx, &c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return dao.ErrDaoExists.With("dao", c.ID)
			}
			return err
		}
		o.emit(c.ID, dao.EventDaoInitialized, map[string]any{
			"authority":          string(c.Authority),
			"treasury":           string(c.Treasury),
			"governance_token":   string(c.GovernanceToken),
			"stake_vault":        string(c.StakeVault),
			"signers":            identityStrings(c.Signers),
			"approval_threshold": c.ApprovalThreshold,
			"vote_duration":      c.VoteDuration,
			"quorum":             c.Quorum,
			"pass_percentage":    c.PassPercentage,
			"min_stake":          c.MinStakeToParticipate,
		})
		created = c
		return nil
	})
	if err != nil {
		return dao.Config{}, err
	}
	return created, nil
}

func identityStrings(ids []dao.Identity) []string {
	return lo.Map(ids, func(id dao.Identity, _ int) string { return string(id) })
}
