package dao

import (
	"encoding/json"
	"fmt"
)

// ActionKind tags an Action variant in its persisted form.
type ActionKind string

const (
	KindAddRecurringPayment ActionKind = "add_recurring_payment"
	KindUpdateDaoConfig     ActionKind = "update_dao_config"
	KindWithdrawTreasury    ActionKind = "withdraw_treasury"
)

// Action is the authorized effect of a proposal. The set is closed: the
// unexported marker keeps other packages from adding variants.
type Action interface {
	Kind() ActionKind
	Accept(v ActionVisitor) error
	isAction()
}

// ActionVisitor handles every Action variant.
type ActionVisitor interface {
	VisitAddRecurringPayment(a AddRecurringPayment) error
	VisitUpdateDaoConfig(a UpdateDaoConfig) error
	VisitWithdrawTreasury(a WithdrawTreasury) error
}

// AddRecurringPayment arms a standing obligation for Recipient.
type AddRecurringPayment struct {
	Recipient Identity `json:"recipient"`
	Amount    uint64   `json:"amount"`
	Currency  Asset    `json:"currency"`
	Interval  int64    `json:"interval_seconds"`
}

func (AddRecurringPayment) Kind() ActionKind { return KindAddRecurringPayment }
func (a AddRecurringPayment) Accept(v ActionVisitor) error {
	return v.VisitAddRecurringPayment(a)
}
func (AddRecurringPayment) isAction() {}

// UpdateDaoConfig mutates the signer set or threshold.
type UpdateDaoConfig struct {
	Op ConfigOp
}

func (UpdateDaoConfig) Kind() ActionKind { return KindUpdateDaoConfig }
func (a UpdateDaoConfig) Accept(v ActionVisitor) error {
	return v.VisitUpdateDaoConfig(a)
}
func (UpdateDaoConfig) isAction() {}

// WithdrawTreasury moves native funds from the treasury to Recipient.
type WithdrawTreasury struct {
	Amount    uint64   `json:"amount"`
	Recipient Identity `json:"recipient"`
}

func (WithdrawTreasury) Kind() ActionKind { return KindWithdrawTreasury }
func (a WithdrawTreasury) Accept(v ActionVisitor) error {
	return v.VisitWithdrawTreasury(a)
}
func (WithdrawTreasury) isAction() {}

// ConfigOpKind tags a ConfigOp variant.
type ConfigOpKind string

const (
	OpAddSigner       ConfigOpKind = "add_signer"
	OpRemoveSigner    ConfigOpKind = "remove_signer"
	OpChangeThreshold ConfigOpKind = "change_threshold"
)

// ConfigOp is the closed set of DAO configuration mutations.
type ConfigOp interface {
	OpKind() ConfigOpKind
	AcceptOp(v ConfigOpVisitor) error
	isConfigOp()
}

// ConfigOpVisitor handles every ConfigOp variant.
type ConfigOpVisitor interface {
	VisitAddSigner(op AddSigner) error
	VisitRemoveSigner(op RemoveSigner) error
	VisitChangeThreshold(op ChangeThreshold) error
}

type AddSigner struct {
	Signer Identity `json:"signer"`
}

func (AddSigner) OpKind() ConfigOpKind               { return OpAddSigner }
func (op AddSigner) AcceptOp(v ConfigOpVisitor) error { return v.VisitAddSigner(op) }
func (AddSigner) isConfigOp()                        {}

type RemoveSigner struct {
	Signer Identity `json:"signer"`
}

func (RemoveSigner) OpKind() ConfigOpKind               { return OpRemoveSigner }
func (op RemoveSigner) AcceptOp(v ConfigOpVisitor) error { return v.VisitRemoveSigner(op) }
func (RemoveSigner) isConfigOp()                        {}

type ChangeThreshold struct {
	Threshold uint8 `json:"threshold"`
}

func (ChangeThreshold) OpKind() ConfigOpKind               { return OpChangeThreshold }
func (op ChangeThreshold) AcceptOp(v ConfigOpVisitor) error { return v.VisitChangeThreshold(op) }
func (ChangeThreshold) isConfigOp()                        {}

// actionEnvelope is the persisted form: {"kind": ..., "params": {...}}.
type actionEnvelope struct {
	Kind   ActionKind      `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// configOpParams flattens a ConfigOp into the update_dao_config params.
type configOpParams struct {
	Op        ConfigOpKind `json:"op"`
	Signer    Identity     `json:"signer,omitempty"`
	Threshold *uint8       `json:"threshold,omitempty"`
}

// MarshalAction encodes an action as a tagged envelope.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, ErrUnknownAction.With("kind", "<nil>")
	}
	var params any
	switch v := a.(type) {
	case UpdateDaoConfig:
		p, err := opParams(v.Op)
		if err != nil {
			return nil, err
		}
		params = p
	default:
		params = a
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", a.Kind(), err)
	}
	return json.Marshal(actionEnvelope{Kind: a.Kind(), Params: raw})
}

func opParams(op ConfigOp) (configOpParams, error) {
	if op == nil {
		return configOpParams{}, ErrUnknownAction.With("op", "<nil>")
	}
	var v opParamsVisitor
	if err := op.AcceptOp(&v); err != nil {
		return configOpParams{}, err
	}
	return v.params, nil
}

type opParamsVisitor struct {
	params configOpParams
}

func (v *opParamsVisitor) VisitAddSigner(op AddSigner) error {
	v.params = configOpParams{Op: OpAddSigner, Signer: op.Signer}
	return nil
}

func (v *opParamsVisitor) VisitRemoveSigner(op RemoveSigner) error {
	v.params = configOpParams{Op: OpRemoveSigner, Signer: op.Signer}
	return nil
}

func (v *opParamsVisitor) VisitChangeThreshold(op ChangeThreshold) error {
	n := op.Threshold
	v.params = configOpParams{Op: OpChangeThreshold, Threshold: &n}
	return nil
}

// UnmarshalAction decodes a tagged envelope produced by MarshalAction.
func UnmarshalAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}
	if len(env.Params) == 0 {
		env.Params = json.RawMessage("{}")
	}
	switch env.Kind {
	case KindAddRecurringPayment:
		var a AddRecurringPayment
		if err := json.Unmarshal(env.Params, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return a, nil
	case KindWithdrawTreasury:
		var a WithdrawTreasury
		if err := json.Unmarshal(env.Params, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		return a, nil
	case KindUpdateDaoConfig:
		var p configOpParams
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
		}
		op, err := p.toOp()
		if err != nil {
			return nil, err
		}
		return UpdateDaoConfig{Op: op}, nil
	default:
		return nil, ErrUnknownAction.With("kind", string(env.Kind))
	}
}

func (p configOpParams) toOp() (ConfigOp, error) {
	switch p.Op {
	case OpAddSigner:
		return AddSigner{Signer: p.Signer}, nil
	case OpRemoveSigner:
		return RemoveSigner{Signer: p.Signer}, nil
	case OpChangeThreshold:
		if p.Threshold == nil {
			return nil, ErrInvalidNewThreshold.With("threshold", "missing")
		}
		return ChangeThreshold{Threshold: *p.Threshold}, nil
	default:
		return nil, ErrUnknownAction.With("op", string(p.Op))
	}
}

// ActionFields flattens an action into canonical-JSON-safe fields for
// event payloads and hashing.
func ActionFields(a Action) (map[string]any, error) {
	if a == nil {
		return nil, ErrUnknownAction.With("kind", "<nil>")
	}
	f := &fieldsVisitor{}
	if err := a.Accept(f); err != nil {
		return nil, err
	}
	f.out["kind"] = string(a.Kind())
	return f.out, nil
}

type fieldsVisitor struct {
	out map[string]any
}

func (f *fieldsVisitor) VisitAddRecurringPayment(a AddRecurringPayment) error {
	f.out = map[string]any{
		"recipient":        string(a.Recipient),
		"amount":           a.Amount,
		"currency":         string(a.Currency),
		"interval_seconds": a.Interval,
	}
	return nil
}

func (f *fieldsVisitor) VisitUpdateDaoConfig(a UpdateDaoConfig) error {
	if a.Op == nil {
		return ErrUnknownAction.With("op", "<nil>")
	}
	f.out = map[string]any{"op": string(a.Op.OpKind())}
	return a.Op.AcceptOp(f)
}

func (f *fieldsVisitor) VisitWithdrawTreasury(a WithdrawTreasury) error {
	f.out = map[string]any{
		"recipient": string(a.Recipient),
		"amount":    a.Amount,
	}
	return nil
}

func (f *fieldsVisitor) VisitAddSigner(op AddSigner) error {
	f.out["signer"] = string(op.Signer)
	return nil
}

func (f *fieldsVisitor) VisitRemoveSigner(op RemoveSigner) error {
	f.out["signer"] = string(op.Signer)
	return nil
}

func (f *fieldsVisitor) VisitChangeThreshold(op ChangeThreshold) error {
	f.out["threshold"] = op.Threshold
	return nil
}
