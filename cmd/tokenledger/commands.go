package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/types"
)

const (
	OwnerKey   = "owner"
	NameKey    = "name"
	SymbolKey  = "symbol"
	FeeKey     = "fee"
	AfterKey   = "after"
	KindKey    = "kind"
	AccountKey = "account"
	LimitKey   = "limit"
	OffsetKey  = "offset"
)

func initCommand(run runner) *cobra.Command {
	c := &cobra.Command{
		Use:   "init",
		Short: "Create the ledger, or open it if it already exists",
		Args:  cobra.NoArgs,
	}
	flags := c.Flags()
	flags.String(OwnerKey, "", "Genesis owner (defaults to the caller)")
	flags.String(NameKey, "Token", "Token name")
	flags.String(SymbolKey, "TKN", "Token symbol")
	flags.Uint64(FeeKey, 0, "Initial transfer fee in basis points (clamped to 50)")

	c.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		owner, err := flags.GetString(OwnerKey)
		if err != nil {
			return err
		}
		if owner == "" {
			owner = cfg.Caller
		}
		addr, err := types.ParseAddress(owner)
		if err != nil {
			return fmt.Errorf("owner: %w", err)
		}
		name, err := flags.GetString(NameKey)
		if err != nil {
			return err
		}
		symbol, err := flags.GetString(SymbolKey)
		if err != nil {
			return err
		}
		fee, err := flags.GetUint64(FeeKey)
		if err != nil {
			return err
		}

		return run(printInfo,
			tokenledger.WithOwner(addr),
			tokenledger.WithTokenMetadata(name, symbol),
			tokenledger.WithInitialFeePercentage(fee),
		)(cmd, args)
	}
	return c
}

func infoCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print token metadata, supply and fee settings",
		Args:  cobra.NoArgs,
		RunE:  run(printInfo),
	}
}

func printInfo(_ context.Context, s *session, _ []string) error {
	l := s.ledger
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ledger\t%s\n", l.LedgerID())
	fmt.Fprintf(w, "name\t%s\n", l.Name())
	fmt.Fprintf(w, "symbol\t%s\n", l.Symbol())
	fmt.Fprintf(w, "decimals\t%d\n", l.Decimals())
	fmt.Fprintf(w, "owner\t%s\n", l.Owner())
	fmt.Fprintf(w, "total supply\t%s\n", s.cfg.FormatAmount(l.TotalSupply()))
	fmt.Fprintf(w, "mint cap\t%s\n", s.cfg.FormatAmount(l.MintCap()))
	fmt.Fprintf(w, "full minting\t%t\n", l.CanMintMore())
	fmt.Fprintf(w, "fee\t%d/%d\n", l.FeePercentage(), l.BasisPointDivisor())
	fmt.Fprintf(w, "seq\t%d\n", l.Seq())
	return w.Flush()
}

func balanceCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "balance ACCOUNT",
		Short: "Print the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(_ context.Context, s *session, args []string) error {
			account, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(s.out, s.cfg.FormatAmount(s.ledger.BalanceOf(account)))
			return err
		}),
	}
}

func allowanceCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance OWNER SPENDER",
		Short: "Print what SPENDER may still move out of OWNER's balance",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(_ context.Context, s *session, args []string) error {
			owner, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			spender, err := types.ParseAddress(args[1])
			if err != nil {
				return err
			}
			amt := s.ledger.Allowance(owner, spender)
			if amt.IsMax() {
				_, err = fmt.Fprintln(s.out, "unlimited")
				return err
			}
			_, err = fmt.Fprintln(s.out, s.cfg.FormatAmount(amt))
			return err
		}),
	}
}

// txCommand builds a command that resolves the caller, parses addresses
// from the leading args and an amount from the last one when withAmount
// is set, then calls op.
func txCommand(run runner, use, short string, addrs int, withAmount bool,
	op func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, addrs []types.Address, amt types.Amount) error,
) *cobra.Command {
	nargs := addrs
	if withAmount {
		nargs++
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: run(func(ctx context.Context, s *session, args []string) error {
			caller, err := s.cfg.CallerAddress()
			if err != nil {
				return err
			}
			parsed := make([]types.Address, addrs)
			for i := range parsed {
				if parsed[i], err = types.ParseAddress(args[i]); err != nil {
					return err
				}
			}
			var amt types.Amount
			if withAmount {
				if amt, err = s.cfg.ParseAmount(args[addrs]); err != nil {
					return err
				}
			}
			if err := op(ctx, s.ledger, caller, parsed, amt); err != nil {
				return err
			}
			_, err = fmt.Fprintf(s.out, "ok seq=%d\n", s.ledger.Seq())
			return err
		}),
	}
}

func mintCommand(run runner) *cobra.Command {
	return txCommand(run, "mint TO AMOUNT", "Create tokens for an account (owner only)", 1, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, amt types.Amount) error {
			return l.Mint(ctx, caller, a[0], amt)
		})
}

func transferCommand(run runner) *cobra.Command {
	return txCommand(run, "transfer TO AMOUNT", "Send tokens from the caller, paying the transfer fee", 1, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, amt types.Amount) error {
			return l.Transfer(ctx, caller, a[0], amt)
		})
}

func transferFromCommand(run runner) *cobra.Command {
	return txCommand(run, "transfer-from FROM TO AMOUNT", "Send tokens out of FROM using the caller's allowance", 2, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, amt types.Amount) error {
			return l.TransferFrom(ctx, caller, a[0], a[1], amt)
		})
}

func approveCommand(run runner) *cobra.Command {
	return txCommand(run, "approve SPENDER AMOUNT", "Set SPENDER's allowance over the caller's balance", 1, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, amt types.Amount) error {
			return l.Approve(ctx, caller, a[0], amt)
		})
}

func burnCommand(run runner) *cobra.Command {
	return txCommand(run, "burn AMOUNT", "Destroy tokens from the caller's balance", 0, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, _ []types.Address, amt types.Amount) error {
			return l.Burn(ctx, caller, amt)
		})
}

func burnFromCommand(run runner) *cobra.Command {
	return txCommand(run, "burn-from ACCOUNT AMOUNT", "Destroy tokens from ACCOUNT using the caller's allowance", 1, true,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, amt types.Amount) error {
			return l.BurnFrom(ctx, caller, a[0], amt)
		})
}

func setFeeCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "set-fee BPS",
		Short: "Set the transfer fee in basis points, clamped to 50 (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, s *session, args []string) error {
			caller, err := s.cfg.CallerAddress()
			if err != nil {
				return err
			}
			bps, err := types.ParseAmount(args[0])
			if err != nil {
				return err
			}
			if err := s.ledger.SetFeePercentage(ctx, caller, bps); err != nil {
				return err
			}
			_, err = fmt.Fprintf(s.out, "fee=%d seq=%d\n", s.ledger.FeePercentage(), s.ledger.Seq())
			return err
		}),
	}
}

func enableFullMintingCommand(run runner) *cobra.Command {
	return txCommand(run, "enable-full-minting", "Raise the mint cap to the full supply (owner only)", 0, false,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, _ []types.Address, _ types.Amount) error {
			return l.EnableFullMinting(ctx, caller)
		})
}

func transferOwnershipCommand(run runner) *cobra.Command {
	return txCommand(run, "transfer-ownership NEW_OWNER", "Hand ownership to another account (owner only)", 1, false,
		func(ctx context.Context, l *tokenledger.Ledger, caller types.Address, a []types.Address, _ types.Amount) error {
			return l.TransferOwnership(ctx, caller, a[0])
		})
}

// eventRecord is the JSON line printed per event. Value is rendered with
// the session's amount format.
type eventRecord struct {
	ID     string        `json:"id"`
	Seq    uint64        `json:"seq"`
	Index  int           `json:"index"`
	Kind   event.Kind    `json:"kind"`
	Caller types.Address `json:"caller"`
	From   types.Address `json:"from,omitempty"`
	To     types.Address `json:"to,omitempty"`
	Value  string        `json:"value"`
	At     string        `json:"at"`
}

func eventsCommand(run runner) *cobra.Command {
	c := &cobra.Command{
		Use:   "events",
		Short: "List ledger notifications as JSON lines",
		Args:  cobra.NoArgs,
	}
	flags := c.Flags()
	flags.Uint64(AfterKey, 0, "Only events after this seq")
	flags.String(KindKey, "", "Only events of this kind")
	flags.String(AccountKey, "", "Only events sent from or to this account")
	flags.Int(LimitKey, 0, "Maximum number of events")
	flags.Int(OffsetKey, 0, "Events to skip")

	c.RunE = run(func(ctx context.Context, s *session, _ []string) error {
		var (
			opts event.ListOpts
			err  error
		)
		if opts.AfterSeq, err = flags.GetUint64(AfterKey); err != nil {
			return err
		}
		kind, err := flags.GetString(KindKey)
		if err != nil {
			return err
		}
		if kind != "" {
			opts.Kind = event.Kind(kind)
			if !opts.Kind.Valid() {
				return fmt.Errorf("unknown event kind %q", kind)
			}
		}
		account, err := flags.GetString(AccountKey)
		if err != nil {
			return err
		}
		if account != "" {
			if opts.Account, err = types.ParseAddress(account); err != nil {
				return err
			}
		}
		if opts.Limit, err = flags.GetInt(LimitKey); err != nil {
			return err
		}
		if opts.Offset, err = flags.GetInt(OffsetKey); err != nil {
			return err
		}

		events, err := s.ledger.Events(ctx, opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(s.out)
		for _, e := range events {
			value := s.cfg.FormatAmount(e.Value)
			if e.Kind == event.KindFeePercentageChanged {
				value = e.Value.String()
			}
			if err := enc.Encode(eventRecord{
				ID:     e.ID.String(),
				Seq:    e.Seq,
				Index:  e.Index,
				Kind:   e.Kind,
				Caller: e.Caller,
				From:   e.From,
				To:     e.To,
				Value:  value,
				At:     e.CreatedAt.Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return c
}
