package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type envelopeStore struct {
	client *firestore.Client
}

func NewEnvelopeStore(client *firestore.Client) *envelopeStore {
	return &envelopeStore{client: client}
}

func (s *envelopeStore) collection(uid string) *firestore.CollectionRef {
	return userCollection(s.client, uid, envelopesCollection)
}

func (s *envelopeStore) Create(ctx context.Context, uid string, e *models.Envelope) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	_, err := s.collection(uid).Doc(e.EnvelopeID).Create(ctx, e)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to create envelope", err)
	}
	return nil
}

func (s *envelopeStore) Get(ctx context.Context, uid, envelopeID string) (*models.Envelope, error) {
	doc, err := s.collection(uid).Doc(envelopeID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NewNotFoundError("envelope not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get envelope", err)
	}
	var e models.Envelope
	if err := doc.DataTo(&e); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse envelope data", err)
	}
	return &e, nil
}

func (s *envelopeStore) List(ctx context.Context, uid string) ([]*models.Envelope, error) {
	docs, err := s.collection(uid).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list envelopes", err)
	}
	envelopes := make([]*models.Envelope, 0, len(docs))
	for _, d := range docs {
		var e models.Envelope
		if err := d.DataTo(&e); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse envelope data", err)
		}
		envelopes = append(envelopes, &e)
	}
	return envelopes, nil
}

// UpdateDetails changes user-editable fields only. Balance belongs to the
// allocation engine and is never written from here.
func (s *envelopeStore) UpdateDetails(ctx context.Context, uid string, e *models.Envelope) error {
	e.UpdatedAt = time.Now()
	_, err := s.collection(uid).Doc(e.EnvelopeID).Update(ctx, []firestore.Update{
		{Path: "name", Value: e.Name},
		{Path: "color", Value: e.Color},
		{Path: "updatedAt", Value: e.UpdatedAt},
	})
	if err != nil {
		if isNotFound(err) {
			return errs.NewNotFoundError("envelope not found")
		}
		return errs.NewDatabaseError("update", "failed to update envelope", err)
	}
	return nil
}

// Delete removes the envelope only while its balance is still zero.
func (s *envelopeStore) Delete(ctx context.Context, uid, envelopeID string) error {
	ref := s.collection(uid).Doc(envelopeID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errs.NewNotFoundError("envelope not found")
			}
			return err
		}
		var e models.Envelope
		if err := snap.DataTo(&e); err != nil {
			return err
		}
		if e.Balance != 0 {
			return errs.NewValidationErrorWithDetails(errs.CodeEnvelopeNotEmpty, "envelope balance must be zero before delete",
				map[string]any{"envelopeId": envelopeID, "balance": e.Balance})
		}
		return tx.Delete(ref)
	})
	if err != nil && !errs.IsDomain(err) {
		return errs.NewDatabaseError("delete", "failed to delete envelope", err)
	}
	return err
}

func (s *envelopeStore) Count(ctx context.Context, uid string) (int, error) {
	docs, err := s.collection(uid).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, errs.NewDatabaseError("read", "failed to count envelopes", err)
	}
	return len(docs), nil
}

type bulkOrderJob struct {
	envelopeID string
	job        *firestore.BulkWriterJob
}

func (s *envelopeStore) BulkUpdateOrder(ctx context.Context, uid string, order map[string]int) error {
	log := logger.FromContext(ctx)
	bw := s.client.BulkWriter(ctx)
	coll := s.collection(uid)
	now := time.Now()

	jobs := make([]bulkOrderJob, 0, len(order))
	for envelopeID, pos := range order {
		j, err := bw.Update(coll.Doc(envelopeID), []firestore.Update{
			{Path: "order", Value: pos},
			{Path: "updatedAt", Value: now},
		})
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("update", "failed to schedule envelope order update", err)
		}
		jobs = append(jobs, bulkOrderJob{envelopeID: envelopeID, job: j})
	}
	bw.End()

	for _, entry := range jobs {
		if _, err := entry.job.Results(); err != nil {
			log.Error("failed to update envelope order", "envelope_id", entry.envelopeID, "error", err)
			if isNotFound(err) {
				return errs.NewNotFoundError("envelope not found")
			}
			return errs.NewDatabaseError("update", "failed to update envelope order", err)
		}
	}
	return nil
}
