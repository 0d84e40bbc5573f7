package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/middleware"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
)

type envelopeService interface {
	ListEnvelopes(ctx context.Context, uid string) ([]*models.Envelope, error)
	CreateEnvelope(ctx context.Context, uid string, req dto.CreateEnvelopeRequest) (*models.Envelope, error)
	UpdateEnvelope(ctx context.Context, uid, envelopeID string, req dto.UpdateEnvelopeRequest) (*models.Envelope, error)
	ReorderEnvelopes(ctx context.Context, uid string, req dto.ReorderEnvelopesRequest) error
	DeleteEnvelope(ctx context.Context, uid, envelopeID string) error
}

type envelopeHandlers struct {
	ResponseHandler response.ResponseHandler
	EnvelopeSvc     envelopeService
}

func NewEnvelopeHandlers(deps *Deps) *envelopeHandlers {
	return &envelopeHandlers{
		ResponseHandler: deps.ResponseHandler,
		EnvelopeSvc:     deps.EnvelopeSvc,
	}
}

func (h *envelopeHandlers) EnvelopeRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListEnvelopes)
	r.Post("/", h.CreateEnvelope)
	r.Put("/reorder", h.ReorderEnvelopes)
	r.Put("/{envelopeId}", h.UpdateEnvelope)
	r.Delete("/{envelopeId}", h.DeleteEnvelope)
	return r
}

func (h *envelopeHandlers) ListEnvelopes(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	envelopes, err := h.EnvelopeSvc.ListEnvelopes(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, envelopes)
}

func (h *envelopeHandlers) CreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var body dto.CreateEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	env, err := h.EnvelopeSvc.CreateEnvelope(r.Context(), uid, body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, env)
}

func (h *envelopeHandlers) UpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	var body dto.UpdateEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	envelopeID := chi.URLParam(r, "envelopeId")

	env, err := h.EnvelopeSvc.UpdateEnvelope(r.Context(), uid, envelopeID, body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, env)
}

func (h *envelopeHandlers) ReorderEnvelopes(w http.ResponseWriter, r *http.Request) {
	var body dto.ReorderEnvelopesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	if err := h.EnvelopeSvc.ReorderEnvelopes(r.Context(), uid, body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *envelopeHandlers) DeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	envelopeID := chi.URLParam(r, "envelopeId")

	if err := h.EnvelopeSvc.DeleteEnvelope(r.Context(), uid, envelopeID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
