package scrape

import (
	"context"
	"log/slog"
	"time"

	"motcli/pkg/contracts/domain"
)

// Scraper combines the page fetch, the row parse and the volume-history
// fetch for a single instrument.
type Scraper struct {
	client *Client
	logger *slog.Logger
}

// NewScraper builds a scraper on top of a fetch client.
func NewScraper(client *Client, logger *slog.Logger) *Scraper {
	return &Scraper{client: client, logger: logger}
}

// Extract fetches and parses one instrument. Fetch and parse failures
// carry the pipeline error taxonomy; an unavailable volume history only
// degrades the record (the volume columns stay empty) because reference
// data without liquidity history is still worth publishing.
func (s *Scraper) Extract(ctx context.Context, isin string) (*domain.BondRecord, error) {
	html, err := s.client.FetchPage(ctx, isin)
	if err != nil {
		return nil, err
	}

	record, err := ParsePage(isin, html, time.Now())
	if err != nil {
		return nil, err
	}

	volumes, err := s.client.FetchMonthlyVolumes(ctx, isin)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.WarnContext(ctx, "volume history unavailable",
			slog.String("isin", isin),
			slog.String("error", err.Error()))
	} else {
		record.Volumes = volumes
	}

	return record, nil
}
