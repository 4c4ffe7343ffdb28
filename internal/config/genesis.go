package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/samber/lo"

	"github.com/roach88/treasury/internal/dao"
)

//go:embed genesis.cue
var genesisSchema string

// Genesis is the file form of a DAO at creation.
type Genesis struct {
	ID                    string   `json:"id" yaml:"id"`
	Authority             string   `json:"authority" yaml:"authority"`
	Treasury              string   `json:"treasury" yaml:"treasury"`
	GovernanceToken       string   `json:"governance_token" yaml:"governance_token"`
	StakeVault            string   `json:"stake_vault" yaml:"stake_vault"`
	Signers               []string `json:"signers,omitempty" yaml:"signers,omitempty"`
	ApprovalThreshold     uint8    `json:"approval_threshold" yaml:"approval_threshold"`
	VoteDuration          int64    `json:"vote_duration" yaml:"vote_duration"`
	Quorum                uint32   `json:"quorum" yaml:"quorum"`
	PassPercentage        uint8    `json:"pass_percentage" yaml:"pass_percentage"`
	MinStakeToParticipate uint64   `json:"min_stake_to_participate" yaml:"min_stake_to_participate"`
	StakingYieldRate      uint16   `json:"staking_yield_rate" yaml:"staking_yield_rate"`
}

// Config converts g to the engine's configuration type. An empty signer
// list is passed through; the engine substitutes the authority.
func (g Genesis) Config() dao.Config {
	return dao.Config{
		ID:                    g.ID,
		Authority:             dao.Identity(g.Authority),
		Treasury:              dao.Identity(g.Treasury),
		GovernanceToken:       dao.Asset(g.GovernanceToken),
		StakeVault:            dao.Identity(g.StakeVault),
		Signers:               lo.Map(g.Signers, func(s string, _ int) dao.Identity { return dao.Identity(s) }),
		ApprovalThreshold:     g.ApprovalThreshold,
		VoteDuration:          g.VoteDuration,
		Quorum:                g.Quorum,
		PassPercentage:        g.PassPercentage,
		MinStakeToParticipate: g.MinStakeToParticipate,
		StakingYieldRate:      g.StakingYieldRate,
	}
}

// GenesisError is a schema violation with its source position.
type GenesisError struct {
	Message string
	Pos     token.Pos
}

func (e *GenesisError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadGenesis reads and validates a genesis YAML file.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	return ParseGenesis(path, data)
}

// ParseGenesis validates YAML data against the embedded #Genesis schema
// and decodes it. Unknown fields are rejected since #Genesis is closed.
func ParseGenesis(filename string, data []byte) (Genesis, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(genesisSchema, cue.Filename("genesis.cue"))
	if err := schema.Err(); err != nil {
		return Genesis{}, fmt.Errorf("compile genesis schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return Genesis{}, formatCUEError(err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return Genesis{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Genesis{}, formatCUEError(err)
	}

	var g Genesis
	if err := v.Decode(&g); err != nil {
		return Genesis{}, formatCUEError(err)
	}
	return g, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &GenesisError{Message: first.Error(), Pos: positions[0]}
	}
	return &GenesisError{Message: first.Error()}
}
