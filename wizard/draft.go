package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the transaction a draft describes.
type Kind string

const (
	KindSupply   Kind = "supply"
	KindWithdraw Kind = "withdraw"
	KindBorrow   Kind = "borrow"
	KindRepay    Kind = "repay"
)

// Kinds lists every transaction kind in menu order.
var Kinds = []Kind{KindSupply, KindWithdraw, KindBorrow, KindRepay}

var ErrUnknownKind = errors.New("unknown transaction kind")

// ParseKind parses a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Draft is the transaction being prepared. It lives only as long as the
// controller that owns it.
type Draft struct {
	Amount string
	Kind   Kind
}

// ValidationError is a rejected forward transition. Message is shown to the
// user as is.
type ValidationError struct {
	Step    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Step == "" {
		return e.Message
	}
	return e.Step + ": " + e.Message
}

// ParseAmount parses Amount as a strictly positive decimal.
func (d Draft) ParseAmount() (decimal.Decimal, error) {
	s := strings.TrimSpace(d.Amount)
	if s == "" {
		return decimal.Zero, &ValidationError{Message: "Please enter an amount"}
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Message: "Please enter a valid number"}
	}
	if !v.IsPositive() {
		return decimal.Zero, &ValidationError{Message: "Amount must be greater than zero"}
	}
	return v, nil
}

// RequireAmount is the entry-step validator of the transaction flow.
func RequireAmount(d Draft) error {
	_, err := d.ParseAmount()
	return err
}
