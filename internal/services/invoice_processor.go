package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/invoiceparser/internal/analysis"
	"github.com/Lllllllleong/invoiceparser/internal/document"
	"github.com/Lllllllleong/invoiceparser/internal/extraction"
	"github.com/Lllllllleong/invoiceparser/internal/gcp"
	"github.com/Lllllllleong/invoiceparser/internal/models"
)

var (
	// ErrQueryFailed means the pending records could not be listed; the run is aborted.
	ErrQueryFailed = errors.New("failed to retrieve processing invoices")
	// ErrMissingFilePath is recorded for invoices without a file reference.
	ErrMissingFilePath = errors.New("invoice has no file path")
)

// InvoiceStore persists invoice records.
type InvoiceStore interface {
	ListProcessing(ctx context.Context) ([]models.Invoice, error)
	Claim(ctx context.Context, id, owner string, lease time.Duration) (bool, error)
	MarkDone(ctx context.Context, id string, fields extraction.InvoiceFields) error
	MarkError(ctx context.Context, id, details string) error
}

// DocumentSource fetches invoice file content.
type DocumentSource interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

// ExpenseAnalyzer runs expense analysis over a document.
type ExpenseAnalyzer interface {
	AnalyzeExpense(ctx context.Context, content []byte) ([]extraction.ExpenseDocument, error)
}

// AnalysisArchiver stores analysis results for later inspection.
type AnalysisArchiver interface {
	Archive(ctx context.Context, invoiceID, contentHash string, docs []extraction.ExpenseDocument) error
}

// InvoiceProcessorFunction holds the dependencies for the invoice processing logic.
type InvoiceProcessorFunction struct {
	store    InvoiceStore
	source   DocumentSource
	analyzer ExpenseAnalyzer
	archiver AnalysisArchiver
	config   InvoiceProcessorConfig

	closers  []func() error
	newRunID func() string
}

// NewInvoiceProcessor creates a processor backed by Firestore, Cloud Storage and Textract.
func NewInvoiceProcessor(ctx context.Context) (*InvoiceProcessorFunction, error) {
	config, err := loadInvoiceProcessorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var (
		firestoreClient *firestore.Client
		storageClient   *storage.Client
		analyzer        *analysis.TextractAnalyzer
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		firestoreClient, err = gcp.NewFirestoreClient(gctx, config.ProjectID)
		return err
	})
	eg.Go(func() error {
		var err error
		if storageClient, err = storage.NewClient(gctx); err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		analyzer, err = analysis.NewTextractAnalyzer(gctx, analysis.Credentials{
			AccessKeyID:     config.AWSAccessKeyID,
			SecretAccessKey: config.AWSSecretAccessKey,
			Region:          config.AWSRegion,
		})
		if err != nil {
			return fmt.Errorf("failed to create textract analyzer: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		if firestoreClient != nil {
			_ = firestoreClient.Close()
		}
		if storageClient != nil {
			_ = storageClient.Close()
		}
		return nil, err
	}

	var archiver AnalysisArchiver
	if config.ArchiveBucket != "" {
		archiver = gcp.NewAnalysisArchive(storageClient.Bucket(config.ArchiveBucket))
	}

	f := NewInvoiceProcessorWith(
		gcp.NewInvoiceRepository(firestoreClient, config.CollectionName),
		gcp.NewObjectSource(storageClient.Bucket(config.InvoiceBucket), config.MaxDocumentBytes),
		analyzer,
		archiver,
		*config,
	)
	f.closers = []func() error{firestoreClient.Close, storageClient.Close}

	slog.Info("Invoice processor initialized.",
		"collection", config.CollectionName,
		"invoiceBucket", config.InvoiceBucket,
		"archiveEnabled", archiver != nil,
		"claimLease", config.ClaimLease.String(),
	)
	return f, nil
}

// NewInvoiceProcessorWith assembles a processor from explicit dependencies.
// archiver may be nil.
func NewInvoiceProcessorWith(store InvoiceStore, source DocumentSource, analyzer ExpenseAnalyzer, archiver AnalysisArchiver, config InvoiceProcessorConfig) *InvoiceProcessorFunction {
	return &InvoiceProcessorFunction{
		store:    store,
		source:   source,
		analyzer: analyzer,
		archiver: archiver,
		config:   config,
		newRunID: uuid.NewString,
	}
}

// Close releases the underlying clients.
func (f *InvoiceProcessorFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Process runs one pass over every invoice in Processing status. Records are handled
// one at a time in query order; a failing record is marked Error and never stops the
// pass. Only a failure to list the records is returned as an error.
func (f *InvoiceProcessorFunction) Process(ctx context.Context) (*models.ProcessInvoicesResponse, error) {
	runID := f.newRunID()
	logCtx := slog.With("runId", runID)

	invoices, err := f.store.ListProcessing(ctx)
	if err != nil {
		logCtx.Error("Error retrieving invoices", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	logCtx.Info("Starting invoice processing.", "invoiceCount", len(invoices))

	res := &models.ProcessInvoicesResponse{
		Status: "success",
		RunID:  runID,
		Found:  len(invoices),
	}
	for i, inv := range invoices {
		// Records not reached before the deadline stay Processing for the next run.
		if err := ctx.Err(); err != nil {
			res.Unprocessed = len(invoices) - i
			logCtx.Warn("Context done, stopping before remaining invoices.", "error", err, "unprocessed", res.Unprocessed)
			break
		}
		switch f.processOneSafely(ctx, logCtx.With("invoiceId", inv.ID, "filePath", inv.FilePath), runID, inv) {
		case outcomeDone:
			res.Succeeded++
		case outcomeSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	logCtx.Info("Done processing invoices.",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"unprocessed", res.Unprocessed,
	)
	return res, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeFailed
	outcomeSkipped
)

// processOneSafely turns a panic while handling one record into an Error status for
// that record.
func (f *InvoiceProcessorFunction) processOneSafely(ctx context.Context, logCtx *slog.Logger, runID string, inv models.Invoice) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			result = f.handleError(ctx, logCtx, inv.ID, "panic while processing invoice", fmt.Errorf("%v", r))
		}
	}()
	return f.processOne(ctx, logCtx, runID, inv)
}

func (f *InvoiceProcessorFunction) processOne(ctx context.Context, logCtx *slog.Logger, runID string, inv models.Invoice) outcome {
	if inv.DecodeErr != nil {
		return f.handleError(ctx, logCtx, inv.ID, "malformed invoice record", inv.DecodeErr)
	}
	if f.config.ClaimLease > 0 {
		claimed, err := f.store.Claim(ctx, inv.ID, runID, f.config.ClaimLease)
		if err != nil {
			return f.handleError(ctx, logCtx, inv.ID, "failed to claim invoice", err)
		}
		if !claimed {
			logCtx.Warn("Invoice claimed by another run or no longer processing. Skipping.")
			return outcomeSkipped
		}
	}

	fields, err := f.extract(ctx, logCtx, inv)
	if err != nil {
		return f.handleError(ctx, logCtx, inv.ID, "failed to extract invoice fields", err)
	}

	if err := f.store.MarkDone(ctx, inv.ID, fields); err != nil {
		return f.handleError(ctx, logCtx, inv.ID, "failed to save extracted fields", err)
	}
	logCtx.Info("Invoice processed.",
		"total", fields.Total,
		"abn", fields.TaxID,
		"invoiceValue", fields.InvoiceReference,
		"invoiceDate", fields.InvoiceDate,
	)
	return outcomeDone
}

// extract downloads, analyzes and resolves the fields of one invoice. The returned
// value is built fresh for every record.
func (f *InvoiceProcessorFunction) extract(ctx context.Context, logCtx *slog.Logger, inv models.Invoice) (extraction.InvoiceFields, error) {
	if inv.FilePath == "" {
		return extraction.InvoiceFields{}, ErrMissingFilePath
	}

	content, err := f.source.Download(ctx, inv.FilePath)
	if err != nil {
		return extraction.InvoiceFields{}, fmt.Errorf("download: %w", err)
	}

	info, err := document.Inspect(content)
	if err != nil {
		return extraction.InvoiceFields{}, fmt.Errorf("inspect: %w", err)
	}
	logCtx.Info("Downloaded invoice file.", "format", info.Format, "bytes", info.Size, "pageCount", info.PageCount)
	if info.PageCountErr != nil {
		logCtx.Warn("Could not read PDF page count. Sending to analysis anyway.", "error", info.PageCountErr)
	}

	docs, err := f.analyzer.AnalyzeExpense(ctx, content)
	if err != nil {
		return extraction.InvoiceFields{}, fmt.Errorf("analyze: %w", err)
	}

	if f.archiver != nil {
		if err := f.archiver.Archive(ctx, inv.ID, info.SHA256, docs); err != nil {
			logCtx.Warn("Failed to archive analysis result", "error", err)
		}
	}

	fields := extraction.ExtractInvoiceFields(docs)
	if fields.Empty() {
		logCtx.Warn("No invoice fields found in analysis result.", "expenseDocuments", len(docs))
	}
	return fields, nil
}

func (f *InvoiceProcessorFunction) handleError(ctx context.Context, logCtx *slog.Logger, id, message string, originalErr error) outcome {
	logCtx.Error(message, "error", originalErr)
	details := fmt.Sprintf("%s: %v", message, originalErr)
	if err := f.store.MarkError(ctx, id, details); err != nil {
		logCtx.Error("CRITICAL: Failed to update invoice status to Error after a processing error.", "updateError", err)
	}
	return outcomeFailed
}
