package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/store"
	"github.com/roach88/streamvest/internal/stream"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] t=%d %s%s\n", event.Step, event.At, event.Op, describeOutcome(event))
		}
	}

	return buf.String()
}

func describeOutcome(ev TraceEvent) string {
	var parts []string
	if ev.StreamID != nil {
		parts = append(parts, fmt.Sprintf("stream=%d", *ev.StreamID))
	}
	if ev.Amount != nil {
		parts = append(parts, fmt.Sprintf("amount=%d", *ev.Amount))
	}
	if ev.Error != "" {
		parts = append(parts, "error="+ev.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// assertTraceContains checks if the trace contains a step with the given
// op, optionally on the given stream, with the given outcome (an error
// code, or success when Error is empty).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Op != assertion.Op || event.Error != assertion.Error {
			continue
		}
		if assertion.StreamID != nil && (event.StreamID == nil || *event.StreamID != *assertion.StreamID) {
			continue
		}
		return nil
	}

	outcome := "success"
	if assertion.Error != "" {
		outcome = "error " + assertion.Error
	}
	expected := fmt.Sprintf("%s with %s", assertion.Op, outcome)
	if assertion.StreamID != nil {
		expected = fmt.Sprintf("%s on stream %d with %s", assertion.Op, *assertion.StreamID, outcome)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening steps are allowed), and
// each op matches the first step after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, op := range assertion.Ops {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Op == op {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual:   fmt.Sprintf("no %s after step %d", op, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the op appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks if a state table contains expected values.
// Queries the table with parameterized SQL and validates expected values
// using subset semantics. The where clause must select exactly one row.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	// Identifiers can't be parameterized
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.DB().QueryContext(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	// Sorted so the first reported mismatch is stable
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, int64, bool:
		return val
	case int:
		return int64(val)
	case uint64:
		return int64(val) // stored as the int64 bit pattern
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from state tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		if actualInt, ok := actual.(int); ok {
			return exp == actualInt
		}
		return false
	case int64:
		if actualInt, ok := actual.(int64); ok {
			return exp == actualInt
		}
		return false
	case uint64:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// assertBalance checks an account's final balance.
func assertBalance(ctx context.Context, st *store.Store, assertion Assertion) error {
	got, err := st.Balance(ctx, stream.Principal(assertion.Account))
	if err != nil {
		return fmt.Errorf("balance of %s: %w", assertion.Account, err)
	}
	if got != *assertion.Amount {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d", assertion.Account, *assertion.Amount),
			Actual:   fmt.Sprintf("%s holds %d", assertion.Account, got),
		}
	}
	return nil
}

// assertAccrued checks the accrued amount of a stream at a given time,
// evaluated against the final record.
func assertAccrued(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	got, err := l.CalculateAccrued(ctx, *assertion.StreamID, *assertion.At)
	if err != nil {
		return &AssertionError{
			Type:     AssertAccrued,
			Expected: fmt.Sprintf("stream %d accrued %d at %d", *assertion.StreamID, *assertion.Amount, *assertion.At),
			Actual:   fmt.Sprintf("error: %v", err),
		}
	}
	if got != *assertion.Amount {
		return &AssertionError{
			Type:     AssertAccrued,
			Expected: fmt.Sprintf("stream %d accrued %d at %d", *assertion.StreamID, *assertion.Amount, *assertion.At),
			Actual:   fmt.Sprintf("accrued %d", got),
		}
	}
	return nil
}

// assertJournal checks the journal holds exactly the given event kinds,
// in seq order.
func assertJournal(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	evs, err := l.Events(ctx, stream.EventFilter{})
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	kinds := make([]string, len(evs))
	for i, ev := range evs {
		kinds[i] = string(ev.Kind)
	}
	if !reflect.DeepEqual(kinds, assertion.Kinds) {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("kinds %v", assertion.Kinds),
			Actual:   fmt.Sprintf("kinds %v", kinds),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Ledger *ledger.Ledger
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store and ledger access for state assertions;
// trace assertions work without it.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState, AssertBalance, AssertAccrued, AssertConserved, AssertJournal:
			if actx == nil || actx.Store == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: %s requires ledger context", i, assertion.Type)
				break
			}
			err = evaluateStateAssertion(actx, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func evaluateStateAssertion(actx *AssertionContext, assertion Assertion) error {
	switch assertion.Type {
	case AssertFinalState:
		return assertFinalState(actx.Ctx, actx.Store, assertion)
	case AssertBalance:
		return assertBalance(actx.Ctx, actx.Store, assertion)
	case AssertAccrued:
		return assertAccrued(actx.Ctx, actx.Ledger, assertion)
	case AssertJournal:
		return assertJournal(actx.Ctx, actx.Ledger, assertion)
	default: // AssertConserved
		h := &Harness{store: actx.Store, ledger: actx.Ledger}
		if msg := h.checkConserved(actx.Ctx); msg != "" {
			return &AssertionError{
				Type:     AssertConserved,
				Expected: "custody and supply conserved",
				Actual:   msg,
			}
		}
		return nil
	}
}
