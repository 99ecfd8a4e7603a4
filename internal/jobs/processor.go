package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/store"
)

// Progress checkpoints for one conversion. Persistence is the final step so
// a record never claims completion before it is durable.
const (
	progressAccepted  = 10
	progressExtracted = 40
	progressValidated = 60
	progressGenerated = 80
	progressPersisted = 100
)

// Result is the terminal state of one job.
type Result struct {
	Record  *store.ConversionRecord
	Outcome *extraction.Outcome
	Output  *generator.Output
}

// Processor drives a job through extraction, validation, generation and
// persistence.
type Processor struct {
	pipeline *extraction.Pipeline
	factory  *generator.Factory
	store    *store.Store
	quota    *Quota
	logger   *zap.Logger
}

// ProcessorOption configures the processor
type ProcessorOption func(*Processor)

// WithStore enables persistence of conversion records.
func WithStore(s *store.Store) ProcessorOption {
	return func(p *Processor) { p.store = s }
}

// WithQuota gates provider calls through the given quota.
func WithQuota(q *Quota) ProcessorOption {
	return func(p *Processor) { p.quota = q }
}

// WithProcessorLogger sets the processor logger
func WithProcessorLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a processor around an extraction pipeline and a
// generator factory.
func NewProcessor(pipeline *extraction.Pipeline, factory *generator.Factory, opts ...ProcessorOption) *Processor {
	p := &Processor{
		pipeline: pipeline,
		factory:  factory,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one job end to end. The conversion record, when a store is
// configured, is written exactly once as the last step, covering both the
// success and the failure path.
func (p *Processor) Run(ctx context.Context, job *Job) (*Result, error) {
	job.UpdateProgress(progressAccepted)

	if p.quota != nil {
		if err := p.quota.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("acquiring provider quota: %w", err)
		}
	}

	outcome, err := p.pipeline.Run(ctx, job.FileData, job.MimeType, job.ExtractedText)
	if err != nil {
		p.persistFailure(job, nil, err)
		return nil, err
	}
	job.UpdateProgress(progressExtracted)

	if !outcome.Validation.Valid {
		job.UpdateProgress(progressValidated)
		err := model.NewValidationError("invoice", fmt.Sprintf("%d issue(s) remain after %d attempt(s)",
			len(outcome.Validation.Issues), outcome.Attempts))
		p.persistFailure(job, outcome, err)
		return &Result{Outcome: outcome}, err
	}
	job.UpdateProgress(progressValidated)

	gen, err := p.factory.Create(job.Format)
	if err != nil {
		p.persistFailure(job, outcome, err)
		return nil, err
	}
	output, err := gen.Generate(outcome.Invoice)
	if err != nil {
		p.persistFailure(job, outcome, err)
		return nil, err
	}
	job.UpdateProgress(progressGenerated)

	record := &store.ConversionRecord{
		ID:         job.ID,
		JobID:      job.ID,
		SourceFile: job.SourceFile,
		Status:     store.StatusCompleted,
		Format:     job.Format,
		Invoice:    outcome.Invoice,
		XMLContent: output.XMLContent,
		PDFContent: output.PDFContent,
	}
	if p.store != nil {
		if err := p.store.Put(store.TableConversions, record); err != nil {
			return nil, fmt.Errorf("persisting conversion: %w", err)
		}
	}
	job.UpdateProgress(progressPersisted)

	p.logger.Info("conversion completed",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.Int("attempts", outcome.Attempts),
	)

	return &Result{Record: record, Outcome: outcome, Output: output}, nil
}

func (p *Processor) persistFailure(job *Job, outcome *extraction.Outcome, cause error) {
	if p.store == nil {
		return
	}
	record := &store.ConversionRecord{
		ID:         job.ID,
		JobID:      job.ID,
		SourceFile: job.SourceFile,
		Status:     store.StatusFailed,
		Format:     job.Format,
		Error:      cause.Error(),
	}
	if outcome != nil {
		record.Invoice = outcome.Invoice
		record.Issues = outcome.Validation.Issues
	}
	if err := p.store.Put(store.TableConversions, record); err != nil {
		p.logger.Warn("persisting failed conversion",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

// BatchResult aggregates a batch run after every child is terminal.
type BatchResult struct {
	Results   []*Result
	Errors    []error
	Succeeded int
	Failed    int
}

// RunBatch fans the jobs out with bounded concurrency and aggregates once
// all children have finished. A child that produced neither a result nor an
// error counts as failed.
func (p *Processor) RunBatch(ctx context.Context, batch []*Job, concurrency int) *BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(batch))
	errs := make([]error, len(batch))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range batch {
		i, job := i, job
		g.Go(func() error {
			result, err := p.Run(gctx, job)
			mu.Lock()
			results[i] = result
			errs[i] = err
			mu.Unlock()
			// A child failure is recorded, not propagated: siblings keep going.
			return nil
		})
	}
	g.Wait()

	agg := &BatchResult{Results: results, Errors: errs}
	for i := range batch {
		if errs[i] == nil && results[i] != nil && results[i].Record != nil {
			agg.Succeeded++
			continue
		}
		agg.Failed++
		if errs[i] == nil {
			errs[i] = fmt.Errorf("job %s finished without a result", batch[i].ID)
		}
	}

	p.logger.Info("batch completed",
		zap.Int("jobs", len(batch)),
		zap.Int("succeeded", agg.Succeeded),
		zap.Int("failed", agg.Failed),
	)

	return agg
}
