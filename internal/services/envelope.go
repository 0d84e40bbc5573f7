package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/pkg/helpers"
)

// envelopeStore is the Firestore storage interface for envelopes.
type envelopeStore interface {
	Create(ctx context.Context, uid string, e *models.Envelope) error
	Get(ctx context.Context, uid, envelopeID string) (*models.Envelope, error)
	List(ctx context.Context, uid string) ([]*models.Envelope, error)
	UpdateDetails(ctx context.Context, uid string, e *models.Envelope) error
	Delete(ctx context.Context, uid, envelopeID string) error
	Count(ctx context.Context, uid string) (int, error)
	BulkUpdateOrder(ctx context.Context, uid string, order map[string]int) error
}

type envelopeService struct {
	store envelopeStore
}

func NewEnvelopeService(store envelopeStore) *envelopeService {
	return &envelopeService{store: store}
}

func (s *envelopeService) ListEnvelopes(ctx context.Context, uid string) ([]*models.Envelope, error) {
	return s.store.List(ctx, uid)
}

// CreateEnvelope starts every envelope at zero; balance only moves through allocation.
func (s *envelopeService) CreateEnvelope(ctx context.Context, uid string, req dto.CreateEnvelopeRequest) (*models.Envelope, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.NewValidationError("name is required")
	}
	count, err := s.store.Count(ctx, uid)
	if err != nil {
		return nil, err
	}
	e := &models.Envelope{
		EnvelopeID: uuid.New().String(),
		Name:       name,
		Color:      req.Color,
		Order:      count + 1,
	}
	if err := s.store.Create(ctx, uid, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *envelopeService) UpdateEnvelope(ctx context.Context, uid, envelopeID string, req dto.UpdateEnvelopeRequest) (*models.Envelope, error) {
	e, err := s.store.Get(ctx, uid, envelopeID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.NewValidationError("name cannot be empty")
		}
		e.Name = name
	}
	e.Color = helpers.ValueOr(req.Color, e.Color)
	if err := s.store.UpdateDetails(ctx, uid, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *envelopeService) ReorderEnvelopes(ctx context.Context, uid string, req dto.ReorderEnvelopesRequest) error {
	if len(req.EnvelopeOrder) == 0 {
		return errs.NewValidationError("envelopeOrder is required")
	}
	order := make(map[string]int, len(req.EnvelopeOrder))
	for _, item := range req.EnvelopeOrder {
		if item.EnvelopeID == "" {
			return errs.NewValidationError("envelopeId is required")
		}
		order[item.EnvelopeID] = item.Order
	}
	return s.store.BulkUpdateOrder(ctx, uid, order)
}

// DeleteEnvelope is rejected by the store while the balance is non-zero.
func (s *envelopeService) DeleteEnvelope(ctx context.Context, uid, envelopeID string) error {
	return s.store.Delete(ctx, uid, envelopeID)
}
