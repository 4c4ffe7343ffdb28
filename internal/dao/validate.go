package dao

import (
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ValidateText checks proposal title and description lengths in runes
// after NFC normalization.
func ValidateText(title, description string) error {
	if n := utf8.RuneCountInString(norm.NFC.String(title)); n > MaxTitleLength {
		return ErrTitleTooLong.With("length", strconv.Itoa(n))
	}
	if n := utf8.RuneCountInString(norm.NFC.String(description)); n > MaxDescriptionLen {
		return ErrDescriptionTooLong.With("length", strconv.Itoa(n))
	}
	return nil
}

// ValidateAction checks an action against the current configuration so
// malformed proposals are rejected at creation. Execution re-checks the
// state-dependent parts.
func ValidateAction(cfg Config, a Action) error {
	if a == nil {
		return ErrUnknownAction.With("kind", "<nil>")
	}
	return a.Accept(&actionValidator{cfg: cfg})
}

type actionValidator struct {
	cfg Config
}

func (v *actionValidator) VisitAddRecurringPayment(a AddRecurringPayment) error {
	if a.Amount == 0 {
		return ErrInvalidAmount
	}
	if a.Interval <= 0 {
		return ErrInvalidPaymentInterval.With("interval_seconds", strconv.FormatInt(a.Interval, 10))
	}
	if err := v.checkRecipient(a.Recipient); err != nil {
		return err
	}
	if a.Currency != AssetNative {
		return ErrInvalidCurrency.With("currency", string(a.Currency))
	}
	return nil
}

func (v *actionValidator) VisitUpdateDaoConfig(a UpdateDaoConfig) error {
	return v.cfg.CheckOp(a.Op)
}

func (v *actionValidator) VisitWithdrawTreasury(a WithdrawTreasury) error {
	if a.Amount == 0 {
		return ErrInvalidAmount
	}
	return v.checkRecipient(a.Recipient)
}

func (v *actionValidator) checkRecipient(r Identity) error {
	if r == "" {
		return ErrInvalidIdentity.With("field", "recipient")
	}
	if r == v.cfg.Treasury {
		return ErrInvalidRecipient.With("recipient", string(r))
	}
	return nil
}
