package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/invoiceparser/internal/extraction"
	"github.com/Lllllllleong/invoiceparser/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// InvoiceRepository reads and updates invoice records in a Firestore collection.
type InvoiceRepository struct {
	client     *firestore.Client
	collection string
}

// NewInvoiceRepository returns a repository over the named collection.
func NewInvoiceRepository(client *firestore.Client, collection string) *InvoiceRepository {
	return &InvoiceRepository{client: client, collection: collection}
}

// ListProcessing returns every record whose status is Processing, in query order.
func (r *InvoiceRepository) ListProcessing(ctx context.Context) ([]models.Invoice, error) {
	iter := r.client.Collection(r.collection).Where("status", "==", models.StatusProcessing).Documents(ctx)
	defer iter.Stop()

	var invoices []models.Invoice
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query processing invoices: %w", err)
		}
		var inv models.Invoice
		if err := snap.DataTo(&inv); err != nil {
			// A malformed record fails on its own, not the whole query.
			inv = models.Invoice{
				Status:    models.StatusProcessing,
				DecodeErr: fmt.Errorf("failed to decode invoice %s: %w", snap.Ref.ID, err),
			}
		}
		inv.ID = snap.Ref.ID
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// Claim marks the record as taken by owner for lease. It reports false when the record
// has left Processing or is held by another live claim.
func (r *InvoiceRepository) Claim(ctx context.Context, id, owner string, lease time.Duration) (bool, error) {
	ref := r.client.Collection(r.collection).Doc(id)
	var claimed bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		claimed = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var inv models.Invoice
		if err := snap.DataTo(&inv); err != nil {
			return err
		}
		now := time.Now()
		if !inv.Claimable(owner, now) {
			return nil
		}
		claimed = true
		return tx.Update(ref, claimUpdates(owner, now.Add(lease)))
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim invoice %s: %w", id, err)
	}
	return claimed, nil
}

// MarkDone stores the extracted fields and moves the record to Done.
func (r *InvoiceRepository) MarkDone(ctx context.Context, id string, fields extraction.InvoiceFields) error {
	if _, err := r.client.Collection(r.collection).Doc(id).Update(ctx, doneUpdates(fields)); err != nil {
		return fmt.Errorf("failed to mark invoice %s done: %w", id, err)
	}
	return nil
}

// MarkError moves the record to Error. Previously extracted fields are left untouched.
func (r *InvoiceRepository) MarkError(ctx context.Context, id, details string) error {
	if _, err := r.client.Collection(r.collection).Doc(id).Update(ctx, errorUpdates(details)); err != nil {
		return fmt.Errorf("failed to mark invoice %s as error: %w", id, err)
	}
	return nil
}

func claimUpdates(owner string, expiresAt time.Time) []firestore.Update {
	return []firestore.Update{
		{Path: "claimedBy", Value: owner},
		{Path: "claimExpiresAt", Value: expiresAt},
	}
}

func doneUpdates(fields extraction.InvoiceFields) []firestore.Update {
	return []firestore.Update{
		{Path: "total", Value: nullable(fields.Total)},
		{Path: "abn", Value: nullable(fields.TaxID)},
		{Path: "invoiceValue", Value: nullable(fields.InvoiceReference)},
		{Path: "invoiceDate", Value: nullable(fields.InvoiceDate)},
		{Path: "status", Value: models.StatusDone},
		{Path: "processedAt", Value: firestore.ServerTimestamp},
		{Path: "claimedBy", Value: firestore.Delete},
		{Path: "claimExpiresAt", Value: firestore.Delete},
	}
}

func errorUpdates(details string) []firestore.Update {
	return []firestore.Update{
		{Path: "status", Value: models.StatusError},
		{Path: "errorDetails", Value: details},
		{Path: "processedAt", Value: firestore.ServerTimestamp},
		{Path: "claimedBy", Value: firestore.Delete},
		{Path: "claimExpiresAt", Value: firestore.Delete},
	}
}

// nullable maps a missing value to a Firestore null.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
