package token

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized     = errors.New("not_authorized")
	ErrOverflow          = errors.New("amount_overflow")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrBadFee            = errors.New("bad_fee")
	ErrTooOld            = errors.New("created_too_old")
	ErrCreatedInFuture   = errors.New("created_in_future")
	ErrDuplicate         = errors.New("duplicate_transfer")
)

type InsufficientFundsError struct {
	Balance uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient_funds: balance %d", e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

type BadFeeError struct {
	ExpectedFee uint64
}

func (e *BadFeeError) Error() string {
	return fmt.Sprintf("bad_fee: expected %d", e.ExpectedFee)
}

func (e *BadFeeError) Unwrap() error {
	return ErrBadFee
}

type DuplicateError struct {
	DuplicateOf uint64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate_transfer: duplicate of %d", e.DuplicateOf)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}
