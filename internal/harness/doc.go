// Package harness replays YAML scenarios against a real ledger.
//
// Each scenario runs in a fresh in-memory SQLite store with a manual
// clock and sequential journal IDs, so the same scenario always yields
// the same trace, balances and records. Steps call the ledger exactly as
// the CLI does; the harness only supplies the time and the caller.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	genesis:
//	  token: USDC
//	  admin: admin
//	  mints:
//	    - { account: alice, amount: 10000 }
//	steps:
//	  - op: create
//	    at: 0
//	    as: [alice]
//	    args: { sender: alice, recipient: bob, deposit: 1000, rate: 1, start: 0, cliff: 0, end: 1000 }
//	    expect: { stream_id: 0 }
//	  - op: withdraw
//	    at: 400
//	    as: [bob]
//	    args: { stream_id: 0 }
//	    expect: { amount: 400 }
//	assertions:
//	  - type: balance
//	    account: bob
//	    amount: 400
//	  - type: final_state
//	    table: streams
//	    where: { id: 0 }
//	    expect: { status: Active }
//
// genesis may be replaced by genesis_file, a CUE genesis file resolved
// relative to the scenario. A step's at carries forward to later steps.
// A step with no expect clause must succeed.
//
// # Assertion Types
//
//   - trace_contains: a step with the given op (and stream) had the given outcome
//   - trace_order: ops appear in the given order
//   - trace_count: an op appears exactly N times
//   - final_state: a state table row matches expected values
//   - balance: an account holds an exact amount
//   - accrued: a stream's accrued amount at a given time
//   - conserved: custody and total supply balance
//   - journal: the journal's event kinds, in order
//
// # Conservation
//
// After every step the harness checks that the custody account holds
// exactly what the streams still owe, and that all balances sum to the
// total minted supply. A violation fails the scenario at that step.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/cancel_at_start.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
