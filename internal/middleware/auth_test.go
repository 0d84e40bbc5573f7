package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/envelope-ledger/internal/response"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type fakeVerifier struct {
	uid string
	err error
	got string
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	f.got = idToken
	if f.err != nil {
		return nil, f.err
	}
	return &auth.Token{UID: f.uid}, nil
}

func newTestMiddleware(v *fakeVerifier) *Middleware {
	log := slog.New(logger.NewTestHandler(slog.LevelError))
	return NewMiddleware(v, response.New(log))
}

func TestFirebaseAuthSetsUID(t *testing.T) {
	v := &fakeVerifier{uid: "uid-1"}
	var seen string
	h := newTestMiddleware(v).FirebaseAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set("Authorization", "Bearer id-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if v.got != "id-token" || seen != "uid-1" {
		t.Fatalf("token=%q uid=%q", v.got, seen)
	}
}

func TestFirebaseAuthRejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
	}{
		{"missing header", "", nil},
		{"wrong scheme", "Basic abc", nil},
		{"invalid token", "Bearer bad", errors.New("expired")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := newTestMiddleware(&fakeVerifier{err: tc.err}).FirebaseAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized || called {
				t.Fatalf("status = %d called = %v", rr.Code, called)
			}
		})
	}
}
