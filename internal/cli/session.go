package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
)

// session is one command's view of the ledger database.
type session struct {
	opts   *RootOptions
	store  *store.Store
	ledger *ledger.Ledger
	logger *slog.Logger
	out    *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// openSession opens the database named by --db, creating it if needed.
// The caller must close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd)

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(CodeStorage, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{
		opts:   opts,
		store:  st,
		ledger: ledger.New(st, ledger.WithLogger(logger)),
		logger: logger,
		out:    out,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// clock returns the time source for this command: --at if given,
// otherwise the configured clock.
func (s *session) clock() ledger.Clock {
	if s.opts.atSet {
		return ledger.FixedClock(s.opts.At)
	}
	if s.opts.Clock != nil {
		return s.opts.Clock
	}
	return ledger.SystemClock{}
}

func (s *session) now() uint64 {
	return s.clock().Now()
}

// caller returns the principals named by --as. No --as proves nothing.
func (s *session) caller() (auth.Caller, error) {
	if len(s.opts.As) == 0 {
		return auth.Nobody(), nil
	}
	ps := make([]stream.Principal, 0, len(s.opts.As))
	for _, raw := range s.opts.As {
		p, err := stream.ParsePrincipal(raw)
		if err != nil {
			return nil, fmt.Errorf("--as %q: %w", raw, err)
		}
		ps = append(ps, p)
	}
	return auth.As(ps...), nil
}

// call builds the Call for a mutating command.
func (s *session) call() (ledger.Call, error) {
	c, err := s.caller()
	if err != nil {
		return ledger.Call{}, s.out.Usage(err)
	}
	return ledger.At(c, s.now()), nil
}

func parseStreamID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stream id %q", arg)
	}
	return id, nil
}

func parseAmount(arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	return v, nil
}
