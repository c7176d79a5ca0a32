package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/invoiceparser/internal/callable"
	"github.com/Lllllllleong/invoiceparser/internal/services"
)

var (
	processorInstance *services.InvoiceProcessorFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "ProcessInvoices" is the callable entry point; "ProcessInvoicesOnEvent" runs the
	// same pass for any CloudEvent trigger, e.g. a Pub/Sub topic.
	functions.HTTP("ProcessInvoices", callable.Handler(processInvoices).ServeHTTP)
	functions.CloudEvent("ProcessInvoicesOnEvent", processInvoicesOnEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func processor() (*services.InvoiceProcessorFunction, error) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		processorInstance, initErr = services.NewInvoiceProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Invoice processor initialization failed", "error", initErr)
		return nil, initErr
	}
	return processorInstance, nil
}

// processInvoices is the callable handler. Any data sent by the caller is ignored.
func processInvoices(ctx context.Context) (interface{}, error) {
	p, err := processor()
	if err != nil {
		return nil, callable.NewError(callable.StatusInternal, "failed to initialize service")
	}

	res, err := p.Process(ctx)
	if errors.Is(err, services.ErrQueryFailed) {
		return nil, callable.NewError(callable.StatusInternal, "Error retrieving invoices")
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// processInvoicesOnEvent runs a processing pass for a CloudEvent. Returning an error marks
// the invocation as failed.
func processInvoicesOnEvent(ctx context.Context, e cloudevents.Event) error {
	p, err := processor()
	if err != nil {
		return err
	}

	slog.Info("Processing run triggered by event.", "eventId", e.ID(), "eventType", e.Type(), "eventSource", e.Source())
	res, err := p.Process(ctx)
	if err != nil {
		return err
	}
	slog.Info("Event-triggered run complete.", "eventId", e.ID(), "runId", res.RunID, "failed", res.Failed)
	return nil
}
