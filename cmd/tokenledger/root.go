package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/store/boltdb"
)

// openTimeout bounds the wait for a database file locked by another process.
const openTimeout = 2 * time.Second

// session is one command invocation: its config, output and, once opened,
// the ledger.
type session struct {
	cfg    *Config
	out    io.Writer
	ledger *tokenledger.Ledger
}

// RootCommand builds the tokenledger command tree writing results to out
// and logs to logOut.
func RootCommand(out, logOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenledger",
		Short:         "Operate a capped fungible token ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddGlobalFlags(root.PersistentFlags())

	// run wraps fn so it executes against a started ledger that is stopped
	// afterwards. Genesis options only matter when the file is empty.
	run := func(fn func(ctx context.Context, s *session, args []string) error, genesis ...tokenledger.Option) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.Flags())
			if err != nil {
				return err
			}
			s, err := openSession(c.Context(), cfg, out, logOut, genesis...)
			if err != nil {
				return err
			}
			err = fn(c.Context(), s, args)
			if stopErr := s.ledger.Stop(); stopErr != nil && err == nil {
				err = stopErr
			}
			return err
		}
	}

	root.AddCommand(
		initCommand(run),
		infoCommand(run),
		balanceCommand(run),
		allowanceCommand(run),
		mintCommand(run),
		transferCommand(run),
		transferFromCommand(run),
		approveCommand(run),
		burnCommand(run),
		burnFromCommand(run),
		setFeeCommand(run),
		enableFullMintingCommand(run),
		transferOwnershipCommand(run),
		eventsCommand(run),
	)
	return root
}

type runner func(fn func(ctx context.Context, s *session, args []string) error, genesis ...tokenledger.Option) func(*cobra.Command, []string) error

func openSession(ctx context.Context, cfg *Config, out, logOut io.Writer, genesis ...tokenledger.Option) (*session, error) {
	logger, err := cfg.NewLogger(logOut)
	if err != nil {
		return nil, err
	}
	mode, err := cfg.FeeModeValue()
	if err != nil {
		return nil, err
	}

	if len(genesis) == 0 {
		if _, err := os.Stat(cfg.DBPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist, run init first", cfg.DBPath)
		}
	}

	st, err := boltdb.Open(cfg.DBPath, openTimeout)
	if err != nil {
		return nil, err
	}

	opts := append([]tokenledger.Option{
		tokenledger.WithLogger(logger),
		tokenledger.WithFeeMode(mode),
	}, genesis...)
	l := tokenledger.New(st, opts...)

	if err := l.Start(ctx); err != nil {
		_ = st.Close() //nolint:errcheck // start error wins
		// Without genesis options the only owner error is an empty file.
		if len(genesis) == 0 && errors.Is(err, tokenledger.ErrInvalidAddress) {
			return nil, fmt.Errorf("%s holds no ledger yet, run init first", cfg.DBPath)
		}
		return nil, err
	}
	return &session{cfg: cfg, out: out, ledger: l}, nil
}
