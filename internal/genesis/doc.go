// Package genesis loads ledger bootstrap files written in CUE.
//
// A genesis file names the token and admin the ledger is configured with
// and may seed initial balances:
//
//	token: "USDC"
//	admin: "treasury"
//	mints: [
//		{account: "alice", amount: 1_000_000},
//	]
//
// The file is unified with the embedded #Genesis definition, so unknown
// fields, empty identities and non-positive amounts are rejected with the
// CUE position of the offending value.
package genesis
