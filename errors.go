package tokenledger

import (
	"errors"
	"fmt"

	"github.com/xraph/tokenledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Authorization errors
	ErrNotOwner = errors.New("tokenledger: caller is not the owner")

	// Policy errors
	ErrExceedsMintingAllowance = errors.New("tokenledger: exceeds minting allowance")
	ErrInsufficientBalance     = errors.New("tokenledger: insufficient balance")
	ErrInsufficientAllowance   = errors.New("tokenledger: insufficient allowance")
	ErrArithmeticOverflow      = errors.New("tokenledger: arithmetic overflow")
	ErrInvalidAddress          = errors.New("tokenledger: invalid address")

	// Lifecycle errors
	ErrNotStarted     = errors.New("tokenledger: ledger not started")
	ErrAlreadyStarted = errors.New("tokenledger: ledger already started")

	// Store errors
	ErrNotFound        = errors.New("tokenledger: not found")
	ErrStoreClosed     = errors.New("tokenledger: store is closed")
	ErrCommitFailed    = errors.New("tokenledger: commit failed")
	ErrSeqConflict     = errors.New("tokenledger: commit sequence conflict")
	ErrMigrationFailed = errors.New("tokenledger: migration failed")
)

// NotOwnerError reports a privileged call by someone other than the owner.
type NotOwnerError struct {
	Caller types.Address
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("tokenledger: caller %s is not the owner", e.Caller)
}

func (e *NotOwnerError) Is(target error) bool { return target == ErrNotOwner }

// ExceedsMintingAllowanceError reports a mint that would push the supply past
// the current phase cap.
type ExceedsMintingAllowanceError struct {
	Supply types.Amount
	Amount types.Amount
	Cap    types.Amount
}

func (e *ExceedsMintingAllowanceError) Error() string {
	return fmt.Sprintf("tokenledger: minting %s on supply %s exceeds cap %s", e.Amount, e.Supply, e.Cap)
}

func (e *ExceedsMintingAllowanceError) Is(target error) bool {
	return target == ErrExceedsMintingAllowance
}

// InsufficientBalanceError reports a debit larger than the account holds.
type InsufficientBalanceError struct {
	Account types.Address
	Balance types.Amount
	Needed  types.Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("tokenledger: %s holds %s, needs %s", e.Account, e.Balance, e.Needed)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// InsufficientAllowanceError reports a delegated spend beyond the allowance.
type InsufficientAllowanceError struct {
	Spender   types.Address
	Allowance types.Amount
	Needed    types.Amount
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("tokenledger: spender %s allowed %s, needs %s", e.Spender, e.Allowance, e.Needed)
}

func (e *InsufficientAllowanceError) Is(target error) bool {
	return target == ErrInsufficientAllowance
}

// Address roles reported by InvalidAddressError.
const (
	RoleReceiver = "receiver"
	RoleSender   = "sender"
	RoleSpender  = "spender"
	RoleApprover = "approver"
	RoleOwner    = "owner"
)

// InvalidAddressError reports the void account used where a real account is
// required.
type InvalidAddressError struct {
	Role    string
	Address types.Address
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("tokenledger: invalid %s %s", e.Role, e.Address)
}

func (e *InvalidAddressError) Is(target error) bool { return target == ErrInvalidAddress }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthorizationError returns true if the caller lacked the rights for the call.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotOwner)
}

// IsPolicyError returns true if the operation was rejected by a ledger rule.
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrExceedsMintingAllowance) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance) ||
		errors.Is(err, ErrArithmeticOverflow) ||
		errors.Is(err, ErrInvalidAddress)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommitFailed) ||
		errors.Is(err, ErrSeqConflict)
}
