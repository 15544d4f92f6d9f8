// Package listino loads the universe of tradable ISIN codes from the
// published instrument listino, a semicolon-separated CSV.
package listino

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
)

// Column headers expected in the listino CSV.
const (
	isinColumn     = "ISIN Code"
	currencyColumn = "Currency"
)

// Source downloads and parses the identifier list. Any failure here is
// fatal for the run: with no identifiers there is no work, and publishing
// an empty table would silently destroy the previous snapshot.
type Source struct {
	cfg      config.SourceConfig
	client   *http.Client
	logger   *slog.Logger
	validate *validator.Validate
}

// NewSource creates an identifier source for the configured endpoint.
func NewSource(cfg config.SourceConfig, logger *slog.Logger) *Source {
	return &Source{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		validate: validator.New(),
	}
}

// Load fetches the listino and returns the distinct, ascending ISIN codes
// of instruments traded in the configured currency.
func (s *Source) Load(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ListinoURL, nil)
	if err != nil {
		return nil, apperrors.SourceUnavailable("failed to build listino request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.SourceUnavailable("listino endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.SourceUnavailable(
			fmt.Sprintf("listino endpoint returned status %d", resp.StatusCode), nil)
	}

	isins, err := s.parse(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identifier list loaded",
		slog.String("url", s.cfg.ListinoURL),
		slog.String("currency", s.cfg.Currency),
		slog.Int("isin_count", len(isins)))

	return isins, nil
}

// parse reads the semicolon-separated listino and extracts the ISIN column.
func (s *Source) parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.SourceUnavailable("listino CSV has no header", err)
	}

	isinIdx, currencyIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case isinColumn:
			isinIdx = i
		case currencyColumn:
			currencyIdx = i
		}
	}
	if isinIdx < 0 {
		return nil, apperrors.SourceUnavailable(
			fmt.Sprintf("listino CSV is missing the %q column", isinColumn), nil)
	}
	if currencyIdx < 0 {
		return nil, apperrors.SourceUnavailable(
			fmt.Sprintf("listino CSV is missing the %q column", currencyColumn), nil)
	}

	seen := make(map[string]struct{})
	var isins []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.SourceUnavailable("listino CSV is malformed", err)
		}
		if len(row) <= isinIdx || len(row) <= currencyIdx {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(row[currencyIdx]), s.cfg.Currency) {
			continue
		}

		code := strings.ToUpper(strings.TrimSpace(row[isinIdx]))
		if err := s.validate.Var(code, "required,isin"); err != nil {
			s.logger.Warn("dropping malformed ISIN from listino", slog.String("isin", code))
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		isins = append(isins, code)
	}

	if len(isins) == 0 {
		return nil, apperrors.SourceUnavailable("listino contained no usable ISIN codes", nil)
	}

	sort.Strings(isins)
	return isins, nil
}
