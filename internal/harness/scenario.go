package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a ledger test scenario.
// Scenarios drive a fresh ledger through a timed sequence of operations
// and assert on each outcome and on the resulting balances and records.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Genesis configures the ledger and seeds balances before the first
	// step. Mutually exclusive with GenesisFile. When both are empty the
	// ledger starts unconfigured.
	Genesis *GenesisSpec `yaml:"genesis,omitempty"`

	// GenesisFile is a CUE genesis file, relative to the scenario file.
	GenesisFile string `yaml:"genesis_file,omitempty"`

	// Steps are executed in order against the ledger.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// GenesisSpec is an inline genesis block.
type GenesisSpec struct {
	Token string     `yaml:"token"`
	Admin string     `yaml:"admin"`
	Mints []MintSpec `yaml:"mints,omitempty"`
}

// MintSpec seeds one balance.
type MintSpec struct {
	Account string `yaml:"account"`
	Amount  int64  `yaml:"amount"`
}

// Step is one ledger operation.
type Step struct {
	// Op is the operation: configure, mint, create, withdraw, pause,
	// resume, cancel or accrued.
	Op string `yaml:"op"`

	// At sets the ledger time for this and later steps. If nil, the
	// previous step's time is reused (0 for the first step).
	At *uint64 `yaml:"at,omitempty"`

	// As lists the principals the caller proves.
	As []string `yaml:"as,omitempty"`

	// Args holds the operation arguments.
	Args StepArgs `yaml:"args,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed and its result is not checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// StepArgs are the union of every operation's arguments. Each operation
// reads only the fields it needs.
type StepArgs struct {
	StreamID  *uint64 `yaml:"stream_id,omitempty"`
	Sender    string  `yaml:"sender,omitempty"`
	Recipient string  `yaml:"recipient,omitempty"`
	Deposit   int64   `yaml:"deposit,omitempty"`
	Rate      int64   `yaml:"rate,omitempty"`
	Start     uint64  `yaml:"start,omitempty"`
	Cliff     uint64  `yaml:"cliff,omitempty"`
	End       uint64  `yaml:"end,omitempty"`
	Account   string  `yaml:"account,omitempty"`
	Amount    int64   `yaml:"amount,omitempty"`
	Token     string  `yaml:"token,omitempty"`
	Admin     string  `yaml:"admin,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// StreamID is the id create must return.
	StreamID *uint64 `yaml:"stream_id,omitempty"`

	// Amount is the value withdraw or accrued must return.
	Amount *int64 `yaml:"amount,omitempty"`

	// Error is the error code the step must fail with
	// (e.g. "ILLEGAL_STATE"). Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Message is a substring the error text must contain.
	Message string `yaml:"message,omitempty"`
}

// Operation names.
const (
	OpConfigure = "configure"
	OpMint      = "mint"
	OpCreate    = "create"
	OpWithdraw  = "withdraw"
	OpPause     = "pause"
	OpResume    = "resume"
	OpCancel    = "cancel"
	OpAccrued   = "accrued"
)

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an op appears in the trace with an outcome
	// - "trace_order": Check ops appear in order
	// - "trace_count": Check an op appears exactly N times
	// - "final_state": Query a table and verify expected values
	// - "balance": Check an account balance
	// - "accrued": Check a stream's accrued amount at a time
	// - "conserved": Check custody and supply conservation
	// - "journal": Check the journal's event kinds, in order
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// StreamID restricts trace_contains to one stream; required by accrued.
	StreamID *uint64 `yaml:"stream_id,omitempty"`

	// Error is the outcome trace_contains looks for: an error code, or
	// empty for success.
	Error string `yaml:"error,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the state table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Account and Amount are used by balance; Amount also by accrued.
	Account string `yaml:"account,omitempty"`
	Amount  *int64 `yaml:"amount,omitempty"`

	// At is the evaluation time (accrued).
	At *uint64 `yaml:"at,omitempty"`

	// Kinds is the expected sequence of journal event kinds (journal).
	Kinds []string `yaml:"kinds,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertBalance       = "balance"
	AssertAccrued       = "accrued"
	AssertConserved     = "conserved"
	AssertJournal       = "journal"
)

// LoadScenario reads and parses a scenario YAML file.
// A genesis_file path is resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving genesis_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the genesis path BEFORE validation
	if scenario.GenesisFile != "" && !filepath.IsAbs(scenario.GenesisFile) && basePath != "" {
		scenario.GenesisFile = filepath.Join(basePath, scenario.GenesisFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Genesis != nil && s.GenesisFile != "" {
		return fmt.Errorf("genesis and genesis_file are mutually exclusive")
	}

	if s.GenesisFile != "" {
		if _, err := os.Stat(s.GenesisFile); os.IsNotExist(err) {
			return fmt.Errorf("genesis file not found: %s", s.GenesisFile)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step names a known op with the arguments it
// cannot run without. Argument values are left to the ledger to judge.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpConfigure, OpCreate:
	case OpMint:
		if s.Args.Account == "" {
			return fmt.Errorf("steps[%d]: args.account is required for mint", index)
		}
	case OpWithdraw, OpPause, OpResume, OpCancel, OpAccrued:
		if s.Args.StreamID == nil {
			return fmt.Errorf("steps[%d]: args.stream_id is required for %s", index, s.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if s.Expect != nil && s.Expect.Message != "" && s.Expect.Error == "" {
		return fmt.Errorf("steps[%d].expect: message requires error", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertBalance:
		if a.Account == "" || a.Amount == nil {
			return fmt.Errorf("assertions[%d]: account and amount are required for balance", index)
		}
	case AssertAccrued:
		if a.StreamID == nil || a.At == nil || a.Amount == nil {
			return fmt.Errorf("assertions[%d]: stream_id, at and amount are required for accrued", index)
		}
	case AssertConserved:
	case AssertJournal:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
