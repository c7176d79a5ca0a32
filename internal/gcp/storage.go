package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/invoiceparser/internal/extraction"
)

// ErrObjectTooLarge is returned when an object exceeds the download limit.
var ErrObjectTooLarge = errors.New("object exceeds size limit")

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	// Precondition failures surface on Close.
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// ObjectSource downloads invoice files from a bucket.
type ObjectSource struct {
	bucket   *storage.BucketHandle
	maxBytes int64
}

// NewObjectSource returns a source reading from bucket. Objects larger than maxBytes are
// refused; maxBytes <= 0 disables the limit.
func NewObjectSource(bucket *storage.BucketHandle, maxBytes int64) *ObjectSource {
	return &ObjectSource{bucket: bucket, maxBytes: maxBytes}
}

// Download returns the full content of the object at path.
func (s *ObjectSource) Download(ctx context.Context, path string) ([]byte, error) {
	objectName := strings.TrimPrefix(path, "/")
	reader, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs object %s: %w", objectName, err)
	}
	defer reader.Close()

	return readLimited(reader, s.maxBytes)
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read object: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, maxBytes)
	}
	return data, nil
}

// AnalysisArchive keeps a JSON copy of every analysis result for later inspection.
type AnalysisArchive struct {
	bucket *storage.BucketHandle
}

// NewAnalysisArchive returns an archive writing into bucket.
func NewAnalysisArchive(bucket *storage.BucketHandle) *AnalysisArchive {
	return &AnalysisArchive{bucket: bucket}
}

// Archive stores docs under the invoice ID and content hash. Re-analysing identical
// content for the same invoice does not overwrite the earlier copy.
func (a *AnalysisArchive) Archive(ctx context.Context, invoiceID, contentHash string, docs []extraction.ExpenseDocument) error {
	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	return SaveToGCSAtomically(ctx, a.bucket, ArchiveObjectName(invoiceID, contentHash), payload)
}

// ArchiveObjectName is the object path used for an archived analysis.
func ArchiveObjectName(invoiceID, contentHash string) string {
	return fmt.Sprintf("analyses/%s/%s.json", invoiceID, contentHash)
}
