// Package tokenledger implements a capped fungible token ledger with a
// basis-point transfer fee paid to a single owner.
//
// The ledger is a library, not a service. It keeps every balance in memory,
// persists each operation through a pluggable store as one atomic changeset
// and notifies plugins once the changeset is durable.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tokenledger"
//	    "github.com/xraph/tokenledger/store/boltdb"
//	    "github.com/xraph/tokenledger/types"
//	)
//
//	st, err := boltdb.Open("token.db", time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	owner := types.MustParseAddress("0x00000000000000000000000000000000000000a1")
//	l := tokenledger.New(st, tokenledger.WithOwner(owner))
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	err = l.Mint(ctx, owner, alice, types.Tokens(10_000))
//
// # Supply
//
// Amounts are unsigned 256-bit integers in base units, 18 decimals per token.
// Minting is owner-only and capped at 50 billion tokens until the owner calls
// EnableFullMinting, which raises the cap to 100 billion for good.
//
// # Fees
//
// Every transfer pays floor(value * fee / 10000) to the current owner; the
// recipient gets the rest and the sender must hold the full value. The fee
// is set in basis points and clamped to 50. By default mints and burns are
// exempt; WithFeeMode(FeeModeAllUpdates) charges them as well.
//
// # Errors
//
// Failed operations change nothing. Typed errors such as
// *ExceedsMintingAllowanceError and *InsufficientBalanceError carry the
// numbers involved and match their sentinel with errors.Is.
//
// # Plugins
//
// Plugins implement any of the hooks in the plugin package. The audit_hook
// package turns ledger notifications into audit records and the
// observability package exports counters and histograms.
package tokenledger
