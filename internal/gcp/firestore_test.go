package gcp

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/invoiceparser/internal/extraction"
	"github.com/Lllllllleong/invoiceparser/internal/models"
)

func updatesByPath(updates []firestore.Update) map[string]interface{} {
	out := make(map[string]interface{}, len(updates))
	for _, u := range updates {
		out[u.Path] = u.Value
	}
	return out
}

func TestDoneUpdates(t *testing.T) {
	got := updatesByPath(doneUpdates(extraction.InvoiceFields{
		Total:            "$110.00",
		InvoiceReference: "INV-001",
	}))

	if got["status"] != models.StatusDone {
		t.Errorf("status = %v, want %q", got["status"], models.StatusDone)
	}
	if got["total"] != "$110.00" {
		t.Errorf("total = %v, want %q", got["total"], "$110.00")
	}
	if got["invoiceValue"] != "INV-001" {
		t.Errorf("invoiceValue = %v, want %q", got["invoiceValue"], "INV-001")
	}
	for _, path := range []string{"abn", "invoiceDate"} {
		v, ok := got[path]
		if !ok {
			t.Errorf("%s missing from updates", path)
		} else if v != nil {
			t.Errorf("%s = %v, want nil", path, v)
		}
	}
	if got["processedAt"] != firestore.ServerTimestamp {
		t.Errorf("processedAt = %v, want server timestamp", got["processedAt"])
	}
	if got["claimedBy"] != firestore.Delete || got["claimExpiresAt"] != firestore.Delete {
		t.Error("claim fields should be deleted")
	}
}

func TestErrorUpdates(t *testing.T) {
	got := updatesByPath(errorUpdates("textract AnalyzeExpense: boom"))

	if got["status"] != models.StatusError {
		t.Errorf("status = %v, want %q", got["status"], models.StatusError)
	}
	if got["errorDetails"] != "textract AnalyzeExpense: boom" {
		t.Errorf("errorDetails = %v", got["errorDetails"])
	}
	for _, path := range []string{"total", "abn", "invoiceValue", "invoiceDate"} {
		if _, ok := got[path]; ok {
			t.Errorf("%s should not be written on error", path)
		}
	}
}

func TestClaimUpdates(t *testing.T) {
	expires := time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC)
	got := updatesByPath(claimUpdates("run-1", expires))
	if got["claimedBy"] != "run-1" {
		t.Errorf("claimedBy = %v, want run-1", got["claimedBy"])
	}
	if got["claimExpiresAt"] != expires {
		t.Errorf("claimExpiresAt = %v, want %v", got["claimExpiresAt"], expires)
	}
}

func TestNewFirestoreClientRequiresProject(t *testing.T) {
	if _, err := NewFirestoreClient(context.Background(), ""); err == nil {
		t.Error("NewFirestoreClient() with empty project should fail")
	}
}
