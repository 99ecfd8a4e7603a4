package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/jobs"
	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/store"
)

// fakeExtractor returns a scripted result without talking to any provider.
type fakeExtractor struct {
	result *extraction.Result
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, file []byte, mimeType string) (*extraction.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExtractor) Name() string { return "fake" }

func goodRaw() model.RawExtraction {
	return model.RawExtraction{
		InvoiceNumber: "RE-2026-042",
		InvoiceDate:   "2026-03-15",
		Currency:      "EUR",
		Seller: model.RawParty{
			Name:        "Muster GmbH",
			CountryCode: "DE",
			VATID:       "DE123456789",
		},
		Buyer: model.RawParty{
			Name: "Beispiel AG",
		},
		LineItems: []model.RawLineItem{
			{Description: "Consulting", Quantity: 10, UnitPrice: 150, TotalPrice: 1500, TaxRate: 19},
			{Description: "Support", Quantity: 1, UnitPrice: 500, TotalPrice: 500, TaxRate: 19},
		},
		Subtotal:    2000,
		TaxAmount:   380,
		TotalAmount: 2380,
	}
}

func badRaw() model.RawExtraction {
	raw := goodRaw()
	raw.TotalAmount = 9999 // grand total does not reconcile
	return raw
}

func newProcessor(t *testing.T, extractor extraction.Extractor) (*jobs.Processor, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	pipeline := extraction.NewPipeline(extractor)
	processor := jobs.NewProcessor(pipeline, generator.NewFactory(), jobs.WithStore(s))
	return processor, s
}

func TestJob_ProgressIsMonotone(t *testing.T) {
	var seen []int
	job := jobs.NewJob("a.pdf", []byte("%PDF"), "application/pdf", model.FormatPeppolBIS)
	job.OnProgress = func(p int) { seen = append(seen, p) }

	job.UpdateProgress(10)
	job.UpdateProgress(40)
	job.UpdateProgress(20) // stale, dropped
	job.UpdateProgress(40) // duplicate, dropped
	job.UpdateProgress(110)

	assert.Equal(t, 100, job.Progress())
	assert.Equal(t, []int{10, 40, 100}, seen)
}

func TestQuota_AcquireWithinBurst(t *testing.T) {
	q := jobs.NewQuota(rate.Limit(100), 1)
	defer q.Close()

	assert.NoError(t, q.Acquire(context.Background()))
}

func TestQuota_CloseUnblocksWaiters(t *testing.T) {
	// One token total, near-zero refill: the second acquire must queue.
	q := jobs.NewQuota(rate.Limit(0.0001), 1)

	require.NoError(t, q.Acquire(context.Background()))

	errCh := make(chan error, 1)
	go func() { errCh <- q.Acquire(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, jobs.ErrQuotaClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released by Close")
	}

	assert.ErrorIs(t, q.Acquire(context.Background()), jobs.ErrQuotaClosed)
}

func TestQuota_ContextCancellation(t *testing.T) {
	q := jobs.NewQuota(rate.Limit(0.0001), 1)
	defer q.Close()

	require.NoError(t, q.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Acquire(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released by cancellation")
	}
}

func TestProcessor_Run(t *testing.T) {
	extractor := &fakeExtractor{result: &extraction.Result{Data: goodRaw(), Confidence: 0.9}}
	processor, s := newProcessor(t, extractor)

	job := jobs.NewJob("invoice.pdf", []byte("%PDF"), "application/pdf", model.FormatPeppolBIS)

	result, err := processor.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 100, job.Progress())
	assert.NotEmpty(t, result.Output.XMLContent)
	assert.Equal(t, store.StatusCompleted, result.Record.Status)

	persisted, err := s.Get(store.TableConversions, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, persisted.Status)
	assert.NotEmpty(t, persisted.XMLContent)
	assert.Equal(t, int64(1), persisted.RowVersion)
}

func TestProcessor_RunPersistsValidationFailure(t *testing.T) {
	extractor := &fakeExtractor{result: &extraction.Result{Data: badRaw(), Confidence: 0.5}}
	processor, s := newProcessor(t, extractor)

	job := jobs.NewJob("invoice.pdf", []byte("%PDF"), "application/pdf", model.FormatPeppolBIS)

	result, err := processor.Run(context.Background(), job)

	require.Error(t, err)
	var validationErr *model.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	require.NotNil(t, result)
	assert.False(t, result.Outcome.Validation.Valid)

	persisted, getErr := s.Get(store.TableConversions, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, store.StatusFailed, persisted.Status)
	assert.NotEmpty(t, persisted.Issues)
	assert.Empty(t, persisted.XMLContent)
}

func TestProcessor_RunExtractorError(t *testing.T) {
	boom := errors.New("provider unavailable")
	extractor := &fakeExtractor{err: boom}
	processor, s := newProcessor(t, extractor)

	job := jobs.NewJob("invoice.pdf", []byte("%PDF"), "application/pdf", model.FormatPeppolBIS)

	_, err := processor.Run(context.Background(), job)
	require.ErrorIs(t, err, boom)

	persisted, getErr := s.Get(store.TableConversions, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, store.StatusFailed, persisted.Status)
}

func TestProcessor_RunUnknownFormat(t *testing.T) {
	extractor := &fakeExtractor{result: &extraction.Result{Data: goodRaw(), Confidence: 0.9}}
	processor, _ := newProcessor(t, extractor)

	job := jobs.NewJob("invoice.pdf", []byte("%PDF"), "application/pdf", "edifact")

	_, err := processor.Run(context.Background(), job)

	require.Error(t, err)
	var unknownErr *model.UnknownFormatError
	assert.True(t, errors.As(err, &unknownErr))
}

func TestProcessor_RunBatch(t *testing.T) {
	good := &extraction.Result{Data: goodRaw(), Confidence: 0.9}
	extractor := &fakeExtractor{result: good}
	processor, _ := newProcessor(t, extractor)

	// The fixture has no buyer reference, so the XRechnung child fails on a
	// mandated field; the third child fails on an unknown format.
	batch := []*jobs.Job{
		jobs.NewJob("a.pdf", []byte("%PDF"), "application/pdf", model.FormatPeppolBIS),
		jobs.NewJob("b.pdf", []byte("%PDF"), "application/pdf", model.FormatXRechnungCII),
		jobs.NewJob("c.pdf", []byte("%PDF"), "application/pdf", "edifact"),
	}

	result := processor.RunBatch(context.Background(), batch, 2)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Results, 3)
	require.Len(t, result.Errors, 3)
	assert.NoError(t, result.Errors[0])
	assert.Error(t, result.Errors[1])
	assert.Error(t, result.Errors[2])
}
