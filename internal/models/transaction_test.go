package models

import "testing"

func TestTransactionRemaining(t *testing.T) {
	cases := []struct {
		name      string
		tx        Transaction
		remaining int64
		full      bool
	}{
		{"debit untouched", Transaction{Amount: -10000}, 10000, false},
		{"debit partial", Transaction{Amount: -10000, Allocated: 4000}, 6000, false},
		{"credit full", Transaction{Amount: 2500, Allocated: 2500}, 0, true},
		{"zero amount", Transaction{Amount: 0}, 0, true},
		{"shrunk below allocated", Transaction{Amount: -100, Allocated: 150}, 0, true},
	}

	for _, tc := range cases {
		tx := tc.tx
		tx.SyncAllocationState()
		if got := tx.Remaining(); got != tc.remaining {
			t.Fatalf("%s: Remaining = %d, want %d", tc.name, got, tc.remaining)
		}
		if tx.FullyAllocated != tc.full {
			t.Fatalf("%s: FullyAllocated = %v, want %v", tc.name, tx.FullyAllocated, tc.full)
		}
	}
}

func TestIsUntracking(t *testing.T) {
	tx := Transaction{Kind: KindAccountUntrack, FromAccountTracking: true, Amount: -2500}
	if !tx.IsUntracking() {
		t.Fatalf("expected untracking transaction")
	}
	tx.Amount = 0
	if tx.IsUntracking() {
		t.Fatalf("zero amount should not count as an untracking debit")
	}
	real := Transaction{Kind: KindReal, Amount: -2500}
	if real.IsUntracking() {
		t.Fatalf("REAL transaction reported as untracking")
	}
}
