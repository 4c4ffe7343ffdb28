package dao

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a governance error.
type Code string

// Class groups codes by how a caller should react.
//
//   - validation: malformed input, resubmitting unchanged never helps
//   - authorization: the caller may not perform this operation
//   - precondition: may succeed later (deadline passes, quorum fills)
//   - resource: balance or arithmetic limits
//   - lookup: the referenced entity does not exist or already exists
type Class string

const (
	ClassValidation    Class = "validation"
	ClassAuthorization Class = "authorization"
	ClassPrecondition  Class = "precondition"
	ClassResource      Class = "resource"
	ClassLookup        Class = "lookup"
)

// Error is returned by every governance operation that rejects a call.
// No state is mutated when an operation returns an *Error.
type Error struct {
	Code    Code
	Class   Class
	Message string

	// Details carries context such as amounts or identities.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Details[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is matches any *Error with the same code, so errors.Is(err, ErrX)
// works for copies produced by With.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e carrying an extra detail.
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Class: e.Class, Message: e.Message, Details: details}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ClassOf returns the class of the first *Error in err's chain, or "".
func ClassOf(err error) Class {
	var de *Error
	if errors.As(err, &de) {
		return de.Class
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func newError(code Code, class Class, message string) *Error {
	return &Error{Code: code, Class: class, Message: message}
}

// Validation errors.
var (
	ErrInvalidAmount          = newError("InvalidAmount", ClassValidation, "amount must be greater than 0")
	ErrInvalidPaymentInterval = newError("InvalidPaymentInterval", ClassValidation, "payment interval must be a positive number of seconds")
	ErrInvalidRecipient       = newError("InvalidRecipient", ClassValidation, "recipient cannot be the treasury itself")
	ErrInvalidCurrency        = newError("InvalidCurrency", ClassValidation, "recurring payments must be denominated in the native asset")
	ErrInvalidThreshold       = newError("InvalidThreshold", ClassValidation, "approval threshold must be greater than 0")
	ErrInvalidVoteDuration    = newError("InvalidVoteDuration", ClassValidation, "vote duration must be a positive value")
	ErrInvalidPassPercentage  = newError("InvalidPassPercentage", ClassValidation, "pass percentage must be between 0 and 100")
	ErrInvalidIdentity        = newError("InvalidIdentity", ClassValidation, "identity must not be empty")
	ErrTitleTooLong           = newError("TitleTooLong", ClassValidation, "proposal title is too long")
	ErrDescriptionTooLong     = newError("DescriptionTooLong", ClassValidation, "proposal description is too long")
	ErrTooManySigners         = newError("TooManySigners", ClassValidation, "signer set is full")
	ErrUnknownPath            = newError("UnknownPath", ClassValidation, "unknown authorization path")
	ErrUnknownAction          = newError("UnknownAction", ClassValidation, "unknown action kind")
	ErrInvalidVoteChoice      = newError("InvalidVoteChoice", ClassValidation, "vote choice must be yes or no")
)

// Authorization errors.
var (
	ErrUnauthorizedSigner = newError("UnauthorizedSigner", ClassAuthorization, "signer is not authorized to perform this action")
	ErrAlreadyApproved    = newError("AlreadyApproved", ClassAuthorization, "signer has already approved this proposal")
	ErrAlreadyVoted       = newError("AlreadyVoted", ClassAuthorization, "voter has already voted on this proposal")
	ErrInsufficientStake  = newError("InsufficientStake", ClassAuthorization, "not enough tokens staked to perform this action")
	ErrWrongPath          = newError("WrongPath", ClassAuthorization, "operation does not apply to this proposal's authorization path")
)

// Precondition errors.
var (
	ErrProposalAlreadyExecuted = newError("ProposalAlreadyExecuted", ClassPrecondition, "proposal has already been executed")
	ErrProposalNotActive       = newError("ProposalNotActive", ClassPrecondition, "proposal is not open for voting")
	ErrVotePeriodNotOver       = newError("VotePeriodNotOver", ClassPrecondition, "voting period has not ended")
	ErrQuorumNotReached        = newError("QuorumNotReached", ClassPrecondition, "proposal did not reach quorum")
	ErrVoteFailedMajority      = newError("VoteFailedMajority", ClassPrecondition, "yes votes did not exceed the pass threshold")
	ErrThresholdNotMet         = newError("ThresholdNotMet", ClassPrecondition, "approvals have not reached the threshold")
	ErrClaimTooEarly           = newError("ClaimTooEarly", ClassPrecondition, "payment is not claimable yet")
	ErrNoClaimablePayment      = newError("NoClaimablePayment", ClassPrecondition, "no recurring payment for this recipient")
	ErrNoStakeFound            = newError("NoStakeFound", ClassPrecondition, "no tokens staked")
	ErrSignerAlreadyExists     = newError("SignerAlreadyExists", ClassPrecondition, "signer is already part of the DAO")
	ErrSignerNotFound          = newError("SignerNotFound", ClassPrecondition, "signer to be removed was not found")
	ErrCannotRemoveSigner      = newError("CannotRemoveSigner", ClassPrecondition, "removing the signer would drop the signer count below the threshold")
	ErrInvalidNewThreshold     = newError("InvalidNewThreshold", ClassPrecondition, "threshold must be between 1 and the number of signers")
)

// Resource errors.
var (
	ErrInsufficientTreasuryBalance = newError("InsufficientTreasuryBalance", ClassResource, "treasury does not have enough funds")
	ErrInsufficientFunds           = newError("InsufficientFunds", ClassResource, "account does not have enough funds")
	ErrArithmeticOverflow          = newError("ArithmeticOverflow", ClassResource, "arithmetic operation overflowed")
)

// Lookup errors.
var (
	ErrDaoNotFound      = newError("DaoNotFound", ClassLookup, "dao not found")
	ErrDaoExists        = newError("DaoExists", ClassLookup, "dao already exists")
	ErrProposalNotFound = newError("ProposalNotFound", ClassLookup, "proposal not found")
	ErrProposalExists   = newError("ProposalExists", ClassLookup, "proposal id already used in this dao")
)
