package models

import "time"

// Invoice statuses. Records are created as Processing by the intake process and move
// to Done or Error once per processing attempt.
const (
	StatusProcessing = "Processing"
	StatusDone       = "Done"
	StatusError      = "Error"
)

// Invoice represents an invoice record in Firestore.
// The extracted fields are nil until a processing attempt finds them.
type Invoice struct {
	ID             string     `firestore:"-"`
	FilePath       string     `firestore:"filePath,omitempty"`
	Status         string     `firestore:"status,omitempty"`
	Total          *string    `firestore:"total,omitempty"`
	ABN            *string    `firestore:"abn,omitempty"`
	InvoiceValue   *string    `firestore:"invoiceValue,omitempty"`
	InvoiceDate    *string    `firestore:"invoiceDate,omitempty"`
	ErrorDetails   string     `firestore:"errorDetails,omitempty"`
	ClaimedBy      string     `firestore:"claimedBy,omitempty"`
	ClaimExpiresAt *time.Time `firestore:"claimExpiresAt,omitempty"`
	ProcessedAt    *time.Time `firestore:"processedAt,omitempty"`

	// DecodeErr is set when the stored document could not be read into Invoice.
	DecodeErr error `firestore:"-"`
}

// Claimable reports whether owner may take the record for processing at now.
// A record is claimable while it is Processing and not held by another live claim.
func (i *Invoice) Claimable(owner string, now time.Time) bool {
	if i.Status != StatusProcessing {
		return false
	}
	if i.ClaimedBy == "" || i.ClaimedBy == owner {
		return true
	}
	return i.ClaimExpiresAt == nil || !now.Before(*i.ClaimExpiresAt)
}
