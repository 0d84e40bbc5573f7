package main

import (
	"testing"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name   string
		result dto.SyncAllResult
		want   int
	}{
		{"all synced", dto.SyncAllResult{BanksSynced: 2}, exitOK},
		{"nothing linked", dto.SyncAllResult{}, exitOK},
		{"one failed", dto.SyncAllResult{BanksSynced: 1, BanksFailed: 1}, exitFail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.result); got != tc.want {
				t.Fatalf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}
