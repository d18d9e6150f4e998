package genesis

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/streamvest/internal/auth"
	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for genesis loading.
const (
	ErrCodeNotFound   = "GENESIS_NOT_FOUND"
	ErrCodeLoadFailed = "GENESIS_LOAD_FAILED"
	ErrCodeInvalid    = "GENESIS_INVALID"
)

// Genesis is a validated bootstrap file.
type Genesis struct {
	Token stream.Principal
	Admin stream.Principal
	Mints []Mint
}

// Mint is one initial balance.
type Mint struct {
	Account stream.Principal
	Amount  int64
}

// Error represents a genesis loading error with source position.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads a genesis definition from path. A directory is loaded as a
// CUE package instance; anything else is compiled as a single file.
func Load(path string) (*Genesis, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("genesis not found: %s", path)}
	}
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing genesis: %v", err)}
	}

	ctx := cuecontext.New()
	var value cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		inst := instances[0]
		if inst.Err != nil {
			return nil, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
		}
		value = ctx.BuildInstance(inst)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading genesis: %v", err)}
		}
		value = ctx.CompileBytes(data, cue.Filename(path))
	}

	return decode(ctx, value)
}

// Parse validates genesis source held in memory. filename is used only
// for error positions.
func Parse(filename string, src []byte) (*Genesis, error) {
	ctx := cuecontext.New()
	return decode(ctx, ctx.CompileBytes(src, cue.Filename(filename)))
}

func decode(ctx *cue.Context, value cue.Value) (*Genesis, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("genesis/schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(value)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeInvalid, err)
	}

	g := &Genesis{}
	var err error
	if g.Token, err = principalAt(v, "token"); err != nil {
		return nil, err
	}
	if g.Admin, err = principalAt(v, "admin"); err != nil {
		return nil, err
	}

	iter, err := v.LookupPath(cue.ParsePath("mints")).List()
	if err != nil {
		return nil, formatCUEError(ErrCodeInvalid, err)
	}
	for iter.Next() {
		m := iter.Value()
		account, err := principalAt(m, "account")
		if err != nil {
			return nil, err
		}
		amount, err := m.LookupPath(cue.ParsePath("amount")).Int64()
		if err != nil {
			return nil, formatCUEError(ErrCodeInvalid, err)
		}
		g.Mints = append(g.Mints, Mint{Account: account, Amount: amount})
	}

	return g, nil
}

func principalAt(v cue.Value, field string) (stream.Principal, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(ErrCodeInvalid, err)
	}
	p, err := stream.ParsePrincipal(s)
	if err != nil {
		return "", &Error{Code: ErrCodeInvalid, Message: fmt.Sprintf("%s: %v", field, err), Pos: fv.Pos()}
	}
	return p, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}

	first := errs[0]
	e := &Error{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

// Minter credits initial balances.
type Minter interface {
	Mint(ctx context.Context, account stream.Principal, amount int64) error
	TotalSupply(ctx context.Context) (int64, error)
}

// Apply configures l from g, acting as g's admin at now, then mints the
// initial balances in file order.
//
// Every mint is checked before the ledger is configured: a custody
// account, a non-positive amount, or a total that would overflow the
// supply fails with nothing written. A ledger that is already configured
// fails with ALREADY_CONFIGURED before anything is minted.
func Apply(ctx context.Context, l *ledger.Ledger, m Minter, g *Genesis, now uint64) error {
	supply, err := m.TotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("read total supply: %w", err)
	}
	for _, mint := range g.Mints {
		if mint.Account == l.Custody() {
			return stream.NewValidationError("cannot mint into the custody account")
		}
		if mint.Amount <= 0 {
			return stream.NewValidationError("mint amount must be positive").
				With("account", string(mint.Account))
		}
		if supply > math.MaxInt64-mint.Amount {
			return stream.NewBalanceOverflowError(mint.Account, supply, mint.Amount)
		}
		supply += mint.Amount
	}

	cfg := stream.Config{Token: g.Token, Admin: g.Admin}
	if err := l.Configure(ctx, ledger.At(auth.As(g.Admin), now), cfg); err != nil {
		return err
	}
	for _, mint := range g.Mints {
		if err := m.Mint(ctx, mint.Account, mint.Amount); err != nil {
			return fmt.Errorf("mint %s: %w", mint.Account, err)
		}
	}
	return nil
}
