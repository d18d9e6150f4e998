package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/streamvest/internal/ledger"
	"github.com/roach88/streamvest/internal/stream"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// configureTestStore writes a config and zeroes the stream counter.
func configureTestStore(t *testing.T, s *Store) {
	t.Helper()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		if err := tx.PutConfig(context.Background(), stream.Config{Token: "USDC", Admin: "admin"}); err != nil {
			return err
		}
		return tx.SetNextStreamID(context.Background(), 0)
	})
	require.NoError(t, err)
}

// createTestRecord creates an Active record with the given id.
func createTestRecord(id uint64, sender, recipient stream.Principal) stream.Record {
	return stream.Record{
		ID:            id,
		Sender:        sender,
		Recipient:     recipient,
		DepositAmount: 1000,
		RatePerSecond: 10,
		StartTime:     100,
		CliffTime:     100,
		EndTime:       200,
		Status:        stream.StatusActive,
	}
}

func u64(v uint64) *uint64 { return &v }

func principal(s string) stream.Principal { return stream.Principal(s) }
