// Package pipeline orchestrates a complete scraping run: load identifiers,
// fetch and parse every instrument through a bounded worker pool, and
// publish the aggregated table atomically.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "motcli/internal/errors"
	"motcli/pkg/contracts/domain"
)

// Stage labels the phases of a run, used for logging and failure reports.
type Stage string

const (
	StageInit               Stage = "init"
	StageLoadingIdentifiers Stage = "loading_identifiers"
	StageFetching           Stage = "fetching"
	StageWriting            Stage = "writing"
	StageDone               Stage = "done"
)

// IdentifierSource yields the ISIN universe for a run.
type IdentifierSource interface {
	Load(ctx context.Context) ([]string, error)
}

// Extractor turns one ISIN into a normalized bond record.
type Extractor interface {
	Extract(ctx context.Context, isin string) (*domain.BondRecord, error)
}

// Writer publishes the aggregated table and the run summary.
type Writer interface {
	WriteTable(records []domain.BondRecord) error
	WriteSummary(summary domain.RunSummary) error
}

// Runner executes the full pipeline. Per-instrument failures accumulate
// in the skip log and never abort the run; identifier-source and write
// failures are fatal. A cancelled run publishes nothing.
type Runner struct {
	source    IdentifierSource
	extractor Extractor
	writer    Writer
	workers   int
	logger    *slog.Logger
}

// NewRunner wires the pipeline stages together. workers bounds the
// concurrent fetches.
func NewRunner(source IdentifierSource, extractor Extractor, writer Writer, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:    source,
		extractor: extractor,
		writer:    writer,
		workers:   workers,
		logger:    logger,
	}
}

// result carries either a record or a skip entry out of a worker.
type result struct {
	record *domain.BondRecord
	skip   *domain.SkipEntry
}

// Run executes one complete scraping run and returns its summary. The
// returned error is non-nil only for fatal failures or cancellation.
// Any failure before the writing stage leaves the previous snapshot on
// disk untouched; a summary write failure after the table rename leaves
// the new table in place, since each file is replaced atomically on its
// own.
func (r *Runner) Run(ctx context.Context, runID string) (*domain.RunSummary, error) {
	startedAt := time.Now()
	r.logStage(ctx, StageInit, slog.String("run_id", runID))

	r.logStage(ctx, StageLoadingIdentifiers)

	isins, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("run failed at stage %s: %w", StageLoadingIdentifiers, err)
	}

	r.logStage(ctx, StageFetching, slog.Int("isin_count", len(isins)))

	records, skips, err := r.fetchAll(ctx, isins)
	if err != nil {
		return nil, fmt.Errorf("run cancelled at stage %s: %w", StageFetching, err)
	}

	// Deterministic output regardless of worker completion order.
	sort.Slice(records, func(i, j int) bool { return records[i].ISIN < records[j].ISIN })
	sort.Slice(skips, func(i, j int) bool { return skips[i].ISIN < skips[j].ISIN })

	summary := domain.RunSummary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Attempted:  len(isins),
		Succeeded:  len(records),
		Skipped:    len(skips),
		Skips:      skips,
	}

	r.logStage(ctx, StageWriting, slog.Int("records", len(records)))

	if err := r.writer.WriteTable(records); err != nil {
		return nil, fmt.Errorf("run failed at stage %s: %w", StageWriting, err)
	}
	if err := r.writer.WriteSummary(summary); err != nil {
		return nil, fmt.Errorf("run failed at stage %s: %w", StageWriting, err)
	}

	r.logStage(ctx, StageDone,
		slog.Int("attempted", summary.Attempted),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", summary.Duration()))

	return &summary, nil
}

// fetchAll runs the worker pool over the identifier list. It returns an
// error only when the context is cancelled; instrument failures become
// skip entries.
func (r *Runner) fetchAll(ctx context.Context, isins []string) ([]domain.BondRecord, []domain.SkipEntry, error) {
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan string)
	results := make(chan result)

	g.Go(func() error {
		defer close(jobs)
		for _, isin := range isins {
			select {
			case jobs <- isin:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for isin := range jobs {
				res, err := r.extractOne(gctx, isin)
				if err != nil {
					return err
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	var records []domain.BondRecord
	var skips []domain.SkipEntry
	for res := range results {
		if res.record != nil {
			records = append(records, *res.record)
		}
		if res.skip != nil {
			skips = append(skips, *res.skip)
		}
	}

	if err := <-waitErr; err != nil {
		return nil, nil, err
	}
	return records, skips, nil
}

// extractOne fetches a single instrument and classifies its outcome. Only
// cancellation propagates as an error; everything else is a record or a
// skip entry.
func (r *Runner) extractOne(ctx context.Context, isin string) (result, error) {
	record, err := r.extractor.Extract(ctx, isin)
	if err == nil {
		return result{record: record}, nil
	}
	if ctx.Err() != nil {
		return result{}, ctx.Err()
	}

	reason := string(apperrors.CodeOf(err))
	if reason == "" {
		reason = "UNEXPECTED_ERROR"
	}
	r.logger.WarnContext(ctx, "instrument skipped",
		slog.String("isin", isin),
		slog.String("reason", reason),
		slog.String("error", err.Error()))

	return result{skip: &domain.SkipEntry{
		ISIN:   isin,
		Reason: reason,
		Detail: err.Error(),
	}}, nil
}

func (r *Runner) logStage(ctx context.Context, stage Stage, attrs ...any) {
	args := append([]any{slog.String("stage", string(stage))}, attrs...)
	r.logger.InfoContext(ctx, "pipeline stage", args...)
}
