package tokenledger

import (
	"context"
	"errors"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/types"
)

// Operation names passed to plugins and logs.
const (
	OpMint              = "mint"
	OpTransfer          = "transfer"
	OpTransferFrom      = "transfer_from"
	OpApprove           = "approve"
	OpBurn              = "burn"
	OpBurnFrom          = "burn_from"
	OpSetFeePercentage  = "set_fee_percentage"
	OpEnableFullMinting = "enable_full_minting"
	OpTransferOwnership = "transfer_ownership"

	opGenesis = "genesis"
)

// ──────────────────────────────────────────────────
// Owner-only operations
// ──────────────────────────────────────────────────

// Mint creates amount new tokens for to. The new supply must stay within the
// cap of the current minting phase.
func (l *Ledger) Mint(ctx context.Context, caller, to types.Address, amount types.Amount) error {
	return l.execute(ctx, OpMint, caller, func(ov *state.Overlay) error {
		if err := requireOwner(ov, caller); err != nil {
			return err
		}
		to, err := receiver(to)
		if err != nil {
			return err
		}

		meta := ov.Meta()
		if _, err := policy.CheckMint(meta.TotalSupply, amount, meta.CanMintMore); err != nil {
			var v *policy.CapViolation
			if errors.As(err, &v) {
				return &ExceedsMintingAllowanceError{Supply: v.Supply, Amount: v.Amount, Cap: v.Cap}
			}
			return err
		}
		return l.update(ov, caller, types.ZeroAddress, to, amount)
	})
}

// SetFeePercentage sets the transfer fee. Values above policy.MaxFee are
// clamped, never rejected.
func (l *Ledger) SetFeePercentage(ctx context.Context, caller types.Address, newFee types.Amount) error {
	return l.execute(ctx, OpSetFeePercentage, caller, func(ov *state.Overlay) error {
		if err := requireOwner(ov, caller); err != nil {
			return err
		}
		clamped := policy.ClampFee(newFee)
		ov.Meta().FeePercentage = clamped
		ov.Emit(&event.Event{
			Kind:   event.KindFeePercentageChanged,
			Caller: ov.Meta().Owner,
			Value:  types.NewAmount(clamped),
		})
		return nil
	})
}

// EnableFullMinting raises the cap to policy.MaxSupply. The switch is one-way;
// repeated calls succeed and notify again.
func (l *Ledger) EnableFullMinting(ctx context.Context, caller types.Address) error {
	return l.execute(ctx, OpEnableFullMinting, caller, func(ov *state.Overlay) error {
		if err := requireOwner(ov, caller); err != nil {
			return err
		}
		ov.Meta().CanMintMore = true
		ov.Emit(&event.Event{
			Kind:   event.KindFullMintingEnabled,
			Caller: ov.Meta().Owner,
		})
		return nil
	})
}

// TransferOwnership hands admin rights and fee receipt to newOwner.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner types.Address) error {
	return l.execute(ctx, OpTransferOwnership, caller, func(ov *state.Overlay) error {
		if err := requireOwner(ov, caller); err != nil {
			return err
		}
		next, err := normalize(RoleOwner, newOwner)
		if err != nil {
			return err
		}
		if next.IsZero() {
			return &InvalidAddressError{Role: RoleOwner, Address: next}
		}

		meta := ov.Meta()
		previous := meta.Owner
		meta.Owner = next
		ov.Emit(&event.Event{
			Kind:   event.KindOwnershipTransferred,
			Caller: previous,
			From:   previous,
			To:     next,
		})
		return nil
	})
}

// ──────────────────────────────────────────────────
// Holder operations
// ──────────────────────────────────────────────────

// Transfer moves value from caller to to, less the fee, which goes to the owner.
func (l *Ledger) Transfer(ctx context.Context, caller, to types.Address, value types.Amount) error {
	return l.execute(ctx, OpTransfer, caller, func(ov *state.Overlay) error {
		from, err := sender(caller)
		if err != nil {
			return err
		}
		to, err := receiver(to)
		if err != nil {
			return err
		}
		return l.update(ov, from, from, to, value)
	})
}

// TransferFrom moves value out of from's balance using caller's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to types.Address, value types.Amount) error {
	return l.execute(ctx, OpTransferFrom, caller, func(ov *state.Overlay) error {
		spender, err := normalize(RoleSpender, caller)
		if err != nil {
			return err
		}
		from, err := sender(from)
		if err != nil {
			return err
		}
		to, err := receiver(to)
		if err != nil {
			return err
		}
		if err := spendAllowance(ov, from, spender, value); err != nil {
			return err
		}
		return l.update(ov, spender, from, to, value)
	})
}

// Approve sets what spender may move out of caller's balance. The maximum
// amount is an unlimited allowance.
func (l *Ledger) Approve(ctx context.Context, caller, spender types.Address, value types.Amount) error {
	return l.execute(ctx, OpApprove, caller, func(ov *state.Overlay) error {
		owner, err := normalize(RoleApprover, caller)
		if err != nil {
			return err
		}
		if owner.IsZero() {
			return &InvalidAddressError{Role: RoleApprover, Address: owner}
		}
		spender, err := normalize(RoleSpender, spender)
		if err != nil {
			return err
		}
		if spender.IsZero() {
			return &InvalidAddressError{Role: RoleSpender, Address: spender}
		}

		ov.SetAllowance(owner, spender, value)
		ov.Emit(&event.Event{
			Kind:   event.KindApproval,
			Caller: owner,
			From:   owner,
			To:     spender,
			Value:  value,
		})
		return nil
	})
}

// Burn destroys amount of caller's tokens.
func (l *Ledger) Burn(ctx context.Context, caller types.Address, amount types.Amount) error {
	return l.execute(ctx, OpBurn, caller, func(ov *state.Overlay) error {
		from, err := sender(caller)
		if err != nil {
			return err
		}
		return l.update(ov, from, from, types.ZeroAddress, amount)
	})
}

// BurnFrom destroys amount of account's tokens using caller's allowance.
func (l *Ledger) BurnFrom(ctx context.Context, caller, account types.Address, amount types.Amount) error {
	return l.execute(ctx, OpBurnFrom, caller, func(ov *state.Overlay) error {
		spender, err := normalize(RoleSpender, caller)
		if err != nil {
			return err
		}
		from, err := sender(account)
		if err != nil {
			return err
		}
		if err := spendAllowance(ov, from, spender, amount); err != nil {
			return err
		}
		return l.update(ov, spender, from, types.ZeroAddress, amount)
	})
}

// ──────────────────────────────────────────────────
// Balance primitives
// ──────────────────────────────────────────────────

// update is the single choke point for balance changes. It splits value into
// fee and send amount and moves both. The sender must hold the full value.
// Under FeeModeTransfersOnly mints and burns skip the fee.
func (l *Ledger) update(ov *state.Overlay, caller, from, to types.Address, value types.Amount) error {
	if l.feeMode == FeeModeTransfersOnly && (from.IsZero() || to.IsZero()) {
		return move(ov, caller, from, to, value)
	}

	meta := ov.Meta()
	split, err := policy.ComputeFee(value, meta.FeePercentage, meta.BasisPointDivisor)
	if err != nil {
		return errors.Join(ErrArithmeticOverflow, err)
	}

	if !from.IsZero() {
		if bal := ov.Balance(from); bal.LessThan(value) {
			return &InsufficientBalanceError{Account: from, Balance: bal, Needed: value}
		}
	}

	if err := move(ov, caller, from, to, split.Send); err != nil {
		return err
	}
	if split.Fee.IsZero() {
		return nil
	}
	return move(ov, caller, from, meta.Owner, split.Fee)
}

// move shifts v from one account to another with no fee. The void account
// as source mints, as destination burns.
func move(ov *state.Overlay, caller, from, to types.Address, v types.Amount) error {
	meta := ov.Meta()

	if from.IsZero() {
		supply, err := meta.TotalSupply.Add(v)
		if err != nil {
			return errors.Join(ErrArithmeticOverflow, err)
		}
		meta.TotalSupply = supply
	} else {
		bal := ov.Balance(from)
		rest, err := bal.Sub(v)
		if err != nil {
			return &InsufficientBalanceError{Account: from, Balance: bal, Needed: v}
		}
		ov.SetBalance(from, rest)
	}

	if to.IsZero() {
		supply, err := meta.TotalSupply.Sub(v)
		if err != nil {
			return errors.Join(ErrArithmeticOverflow, err)
		}
		meta.TotalSupply = supply
	} else {
		bal, err := ov.Balance(to).Add(v)
		if err != nil {
			return errors.Join(ErrArithmeticOverflow, err)
		}
		ov.SetBalance(to, bal)
	}

	ov.Emit(&event.Event{
		Kind:   event.KindTransfer,
		Caller: caller,
		From:   from,
		To:     to,
		Value:  v,
	})
	return nil
}

// spendAllowance deducts value from owner's allowance to spender. An
// unlimited allowance is left untouched.
func spendAllowance(ov *state.Overlay, owner, spender types.Address, value types.Amount) error {
	current := ov.Allowance(owner, spender)
	if current.IsMax() {
		return nil
	}
	rest, err := current.Sub(value)
	if err != nil {
		return &InsufficientAllowanceError{Spender: spender, Allowance: current, Needed: value}
	}
	ov.SetAllowance(owner, spender, rest)
	return nil
}

// ──────────────────────────────────────────────────
// Address checks
// ──────────────────────────────────────────────────

func requireOwner(ov *state.Overlay, caller types.Address) error {
	c, err := normalize(RoleOwner, caller)
	if err != nil || c != ov.Meta().Owner {
		return &NotOwnerError{Caller: caller}
	}
	return nil
}

// normalize returns the canonical form of a, mapping both void spellings to
// types.ZeroAddress.
func normalize(role string, a types.Address) (types.Address, error) {
	if a.IsZero() {
		return types.ZeroAddress, nil
	}
	parsed, err := types.ParseAddress(string(a))
	if err != nil {
		return "", &InvalidAddressError{Role: role, Address: a}
	}
	return parsed, nil
}

func sender(a types.Address) (types.Address, error) {
	from, err := normalize(RoleSender, a)
	if err != nil {
		return "", err
	}
	if from.IsZero() {
		return "", &InvalidAddressError{Role: RoleSender, Address: from}
	}
	return from, nil
}

func receiver(a types.Address) (types.Address, error) {
	to, err := normalize(RoleReceiver, a)
	if err != nil {
		return "", err
	}
	if to.IsZero() {
		return "", &InvalidAddressError{Role: RoleReceiver, Address: to}
	}
	return to, nil
}
