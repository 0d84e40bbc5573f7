package plaidclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/pkg/helpers"
)

func TestClassifyTransient(t *testing.T) {
	cases := []struct {
		name      string
		resp      *http.Response
		transient bool
	}{
		{"no response", nil, true},
		{"rate limited", &http.Response{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &http.Response{StatusCode: http.StatusBadGateway}, true},
		{"bad request", &http.Response{StatusCode: http.StatusBadRequest}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify("accounts_get", tc.resp, errors.New("boom"))
			var ext *errs.ExternalServiceError
			if !errors.As(err, &ext) {
				t.Fatalf("expected ExternalServiceError, got %T", err)
			}
			if ext.Transient != tc.transient {
				t.Fatalf("transient = %v, want %v", ext.Transient, tc.transient)
			}
			if ext.Service != "plaid" {
				t.Fatalf("service = %q", ext.Service)
			}
		})
	}
}

func TestExecuteOpensBreakerOnTransientFailures(t *testing.T) {
	a := &Adapter{breaker: newBreaker()}
	ctx := helpers.TestCtx()
	calls := 0
	failing := func() (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusServiceUnavailable}, errors.New("unavailable")
	}

	for i := 0; i < 5; i++ {
		if err := a.execute(ctx, "transactions_sync", failing); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	err := a.execute(ctx, "transactions_sync", failing)
	var ext *errs.ExternalServiceError
	if !errors.As(err, &ext) || !ext.Transient {
		t.Fatalf("expected transient external error from open breaker, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("open breaker should not call plaid, calls = %d", calls)
	}
}

func TestExecutePermanentFailuresKeepBreakerClosed(t *testing.T) {
	a := &Adapter{breaker: newBreaker()}
	ctx := context.Background()
	calls := 0
	loginRequired := func() (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusBadRequest}, errors.New("ITEM_LOGIN_REQUIRED")
	}

	for i := 0; i < 10; i++ {
		err := a.execute(ctx, "transactions_sync", loginRequired)
		var ext *errs.ExternalServiceError
		if !errors.As(err, &ext) || ext.Transient {
			t.Fatalf("call %d: expected permanent external error, got %v", i, err)
		}
	}
	if calls != 10 {
		t.Fatalf("calls = %d, want 10", calls)
	}
}
