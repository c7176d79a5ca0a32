package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Lllllllleong/invoiceparser/internal/gcp"
)

const (
	defaultCollection       = "invoices"
	defaultClaimLease       = 10 * time.Minute
	defaultMaxDocumentBytes = 10 << 20 // AnalyzeExpense synchronous limit
)

// InvoiceProcessorConfig holds all configuration for the invoice processor.
type InvoiceProcessorConfig struct {
	ProjectID          string
	InvoiceBucket      string
	CollectionName     string
	ArchiveBucket      string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	// ClaimLease is how long a run holds a record. Zero disables claiming.
	ClaimLease       time.Duration
	MaxDocumentBytes int64
}

// loadInvoiceProcessorConfig loads and validates the processor's environment variables.
func loadInvoiceProcessorConfig() (*InvoiceProcessorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	invoiceBucket := gcp.GetEnv("INVOICE_BUCKET", "")
	if invoiceBucket == "" {
		return nil, fmt.Errorf("INVOICE_BUCKET environment variable must be set")
	}
	region := gcp.GetEnv("TEXTRACT_REGION", "")
	if region == "" {
		return nil, fmt.Errorf("TEXTRACT_REGION environment variable must be set")
	}
	accessKeyID := gcp.GetEnv("TEXTRACT_ACCESS_KEY_ID", "")
	secretAccessKey := gcp.GetEnv("TEXTRACT_SECRET_ACCESS_KEY", "")
	if (accessKeyID == "") != (secretAccessKey == "") {
		return nil, fmt.Errorf("TEXTRACT_ACCESS_KEY_ID and TEXTRACT_SECRET_ACCESS_KEY must be set together")
	}

	claimLease, err := time.ParseDuration(gcp.GetEnv("CLAIM_LEASE", defaultClaimLease.String()))
	if err != nil || claimLease < 0 {
		return nil, fmt.Errorf("CLAIM_LEASE must be a non-negative duration")
	}
	maxBytes, err := strconv.ParseInt(gcp.GetEnv("MAX_DOCUMENT_BYTES", strconv.Itoa(defaultMaxDocumentBytes)), 10, 64)
	if err != nil || maxBytes <= 0 {
		return nil, fmt.Errorf("MAX_DOCUMENT_BYTES must be a positive integer")
	}

	return &InvoiceProcessorConfig{
		ProjectID:          projectID,
		InvoiceBucket:      invoiceBucket,
		CollectionName:     gcp.GetEnv("FIRESTORE_COLLECTION", defaultCollection),
		ArchiveBucket:      gcp.GetEnv("ANALYSIS_ARCHIVE_BUCKET", ""),
		AWSAccessKeyID:     accessKeyID,
		AWSSecretAccessKey: secretAccessKey,
		AWSRegion:          region,
		ClaimLease:         claimLease,
		MaxDocumentBytes:   maxBytes,
	}, nil
}
