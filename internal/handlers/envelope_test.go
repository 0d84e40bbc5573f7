package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
)

type fakeEnvelopeSvc struct {
	envelopes []*models.Envelope
	err       error

	gotCreate  dto.CreateEnvelopeRequest
	gotUpdate  dto.UpdateEnvelopeRequest
	gotReorder dto.ReorderEnvelopesRequest
	gotID      string
}

func (f *fakeEnvelopeSvc) ListEnvelopes(ctx context.Context, uid string) ([]*models.Envelope, error) {
	return f.envelopes, f.err
}
func (f *fakeEnvelopeSvc) CreateEnvelope(ctx context.Context, uid string, req dto.CreateEnvelopeRequest) (*models.Envelope, error) {
	f.gotCreate = req
	return &models.Envelope{EnvelopeID: "env-1", Name: req.Name}, f.err
}
func (f *fakeEnvelopeSvc) UpdateEnvelope(ctx context.Context, uid, envelopeID string, req dto.UpdateEnvelopeRequest) (*models.Envelope, error) {
	f.gotID = envelopeID
	f.gotUpdate = req
	return &models.Envelope{EnvelopeID: envelopeID}, f.err
}
func (f *fakeEnvelopeSvc) ReorderEnvelopes(ctx context.Context, uid string, req dto.ReorderEnvelopesRequest) error {
	f.gotReorder = req
	return f.err
}
func (f *fakeEnvelopeSvc) DeleteEnvelope(ctx context.Context, uid, envelopeID string) error {
	f.gotID = envelopeID
	return f.err
}

func newTestEnvelopeHandler(e *fakeEnvelopeSvc) *envelopeHandlers {
	return NewEnvelopeHandlers(&Deps{
		ResponseHandler: response.New(testLogger()),
		EnvelopeSvc:     e,
	})
}

func TestCreateEnvelopeHandler(t *testing.T) {
	e := &fakeEnvelopeSvc{}
	h := newTestEnvelopeHandler(e)

	req := httptest.NewRequest(http.MethodPost, "/envelopes", bytes.NewBufferString(`{"name":"Groceries","color":"#00ff00"}`)).WithContext(ctxWithUID(context.Background()))
	rr := httptest.NewRecorder()

	h.CreateEnvelope(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if e.gotCreate.Name != "Groceries" || e.gotCreate.Color != "#00ff00" {
		t.Fatalf("create called with %+v", e.gotCreate)
	}
}

func TestUpdateEnvelopeHandler(t *testing.T) {
	e := &fakeEnvelopeSvc{}
	h := newTestEnvelopeHandler(e)

	req := httptest.NewRequest(http.MethodPut, "/envelopes/env-1", bytes.NewBufferString(`{"name":"Food"}`)).WithContext(ctxWithUID(context.Background()))
	req = withURLParam(req, "envelopeId", "env-1")
	rr := httptest.NewRecorder()

	h.UpdateEnvelope(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if e.gotID != "env-1" || e.gotUpdate.Name == nil || *e.gotUpdate.Name != "Food" || e.gotUpdate.Color != nil {
		t.Fatalf("update called with %s %+v", e.gotID, e.gotUpdate)
	}
}

func TestReorderEnvelopesHandler(t *testing.T) {
	e := &fakeEnvelopeSvc{}
	h := newTestEnvelopeHandler(e)

	body := `{"envelopeOrder":[{"envelopeId":"b","order":1},{"envelopeId":"a","order":2}]}`
	req := httptest.NewRequest(http.MethodPut, "/envelopes/reorder", bytes.NewBufferString(body)).WithContext(ctxWithUID(context.Background()))
	rr := httptest.NewRecorder()

	h.ReorderEnvelopes(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if len(e.gotReorder.EnvelopeOrder) != 2 || e.gotReorder.EnvelopeOrder[0].EnvelopeID != "b" {
		t.Fatalf("reorder called with %+v", e.gotReorder)
	}
}

func TestDeleteEnvelopeHandlerNotEmpty(t *testing.T) {
	e := &fakeEnvelopeSvc{err: errs.NewValidationErrorWithDetails(errs.CodeEnvelopeNotEmpty, "envelope balance must be zero", nil)}
	h := newTestEnvelopeHandler(e)

	req := httptest.NewRequest(http.MethodDelete, "/envelopes/env-1", nil).WithContext(ctxWithUID(context.Background()))
	req = withURLParam(req, "envelopeId", "env-1")
	rr := httptest.NewRecorder()

	h.DeleteEnvelope(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}
