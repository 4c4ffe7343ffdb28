package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/treasury/internal/dao"
)

// Operation names accepted by Dispatch.
const (
	OpStake   = "stake"
	OpUnstake = "unstake"
	OpPropose = "propose"
	OpApprove = "approve"
	OpVote    = "vote"
	OpExecute = "execute"
	OpClaim   = "claim"
)

// Ops lists every operation Dispatch understands, in lifecycle order.
var Ops = []string{OpStake, OpUnstake, OpPropose, OpApprove, OpVote, OpExecute, OpClaim}

// ErrUnknownOperation is returned by Dispatch for an unrecognized Op.
var ErrUnknownOperation = errors.New("unknown operation")

// Invocation is one operation in loosely typed form, as read from the
// command line or a scenario file. Args is decoded strictly: unknown keys
// are an error.
type Invocation struct {
	Op     string
	Caller dao.Identity
	DaoID  string
	Args   map[string]any
}

type stakeArgs struct {
	Amount uint64 `json:"amount"`
}

type proposeArgs struct {
	ID          uint64          `json:"id"`
	Path        dao.Path        `json:"path"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Action      json.RawMessage `json:"action"`
}

type proposalArgs struct {
	Proposal uint64 `json:"proposal"`
}

type voteArgs struct {
	Proposal uint64 `json:"proposal"`
	Choice   string `json:"choice"`
}

// Dispatch decodes inv and runs the named operation with Caller as the
// acting identity. The result is the operation's own return value.
func (e *Engine) Dispatch(ctx context.Context, inv Invocation) (any, error) {
	switch inv.Op {
	case OpStake:
		var a stakeArgs
		if err := decodeArgs(inv, &a); err != nil {
			return nil, err
		}
		return e.Deposit(ctx, inv.DaoID, inv.Caller, a.Amount)

	case OpUnstake:
		if err := decodeArgs(inv, &struct{}{}); err != nil {
			return nil, err
		}
		return e.WithdrawAll(ctx, inv.DaoID, inv.Caller)

	case OpPropose:
		var a proposeArgs
		if err := decodeArgs(inv, &a); err != nil {
			return nil, err
		}
		if len(a.Action) == 0 {
			return nil, dao.ErrUnknownAction.With("kind", "<missing>")
		}
		action, err := dao.UnmarshalAction(a.Action)
		if err != nil {
			return nil, err
		}
		return e.CreateProposal(ctx, CreateRequest{
			DaoID:       inv.DaoID,
			ID:          a.ID,
			Path:        a.Path,
			Proposer:    inv.Caller,
			Action:      action,
			Title:       a.Title,
			Description: a.Description,
		})

	case OpApprove:
		var a proposalArgs
		if err := decodeArgs(inv, &a); err != nil {
			return nil, err
		}
		return e.Approve(ctx, inv.DaoID, a.Proposal, inv.Caller)

	case OpVote:
		var a voteArgs
		if err := decodeArgs(inv, &a); err != nil {
			return nil, err
		}
		choice, err := dao.ParseVoteChoice(a.Choice)
		if err != nil {
			return nil, err
		}
		return e.Vote(ctx, inv.DaoID, a.Proposal, inv.Caller, choice)

	case OpExecute:
		var a proposalArgs
		if err := decodeArgs(inv, &a); err != nil {
			return nil, err
		}
		return e.Execute(ctx, inv.DaoID, a.Proposal)

	case OpClaim:
		if err := decodeArgs(inv, &struct{}{}); err != nil {
			return nil, err
		}
		return e.Claim(ctx, inv.DaoID, inv.Caller)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownOperation, inv.Op)
}

func decodeArgs(inv Invocation, dst any) error {
	if len(inv.Args) == 0 {
		return nil
	}
	data, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("%s args: %w", inv.Op, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%s args: %w", inv.Op, err)
	}
	return nil
}
