// Package exporter serializes the aggregated bond table and the run
// summary to the published snapshot files. All writes are atomic: the
// previous snapshot stays intact until the new one is complete.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
	"motcli/pkg/contracts/domain"
)

// maturityLayout is the date format used in the published table.
const maturityLayout = "2006-01-02"

// utf8BOM helps Excel recognize the encoding of the published CSV.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Writer publishes run output under the configured results directory.
type Writer struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWriter creates a snapshot writer.
func NewWriter(paths *config.Paths, logger *slog.Logger) *Writer {
	return &Writer{paths: paths, logger: logger}
}

// Header returns the fixed column header of the published table. The
// volume columns hold the trailing twelve months chronologically, the
// newest month in volume_month_12; missing months are empty cells.
func Header() []string {
	header := []string{
		"isin", "issuer", "category", "coupon", "maturity", "price",
		"yield_gross", "yield_net", "contracts", "last_volume",
		"total_volume", "modified_duration", "years_to_maturity",
	}
	for i := 1; i <= domain.VolumeMonths; i++ {
		header = append(header, fmt.Sprintf("volume_month_%d", i))
	}
	return header
}

// WriteTable atomically replaces the published bond table.
func (w *Writer) WriteTable(records []domain.BondRecord) error {
	path := w.paths.BondTablePath()

	err := writeAtomic(path, func(out io.Writer) error {
		if _, err := out.Write(utf8BOM); err != nil {
			return err
		}
		cw := csv.NewWriter(out)
		if err := cw.Write(Header()); err != nil {
			return err
		}
		for i := range records {
			if err := cw.Write(recordRow(&records[i])); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return apperrors.WriteFailed("failed to write bond table", err)
	}

	w.logger.Info("bond table published",
		slog.String("path", path),
		slog.Int("rows", len(records)))
	return nil
}

// WriteSummary atomically replaces the run summary JSON.
func (w *Writer) WriteSummary(summary domain.RunSummary) error {
	path := w.paths.RunSummaryPath()

	err := writeAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	})
	if err != nil {
		return apperrors.WriteFailed("failed to write run summary", err)
	}

	w.logger.Info("run summary published", slog.String("path", path))
	return nil
}

// recordRow flattens one record into CSV cells. Volume months are
// left-padded so the newest month always lands in the last column.
func recordRow(rec *domain.BondRecord) []string {
	row := []string{
		rec.ISIN,
		rec.Issuer,
		string(rec.Category),
		formatOptional(rec.Coupon),
		formatMaturity(rec.Maturity),
		formatFloat(rec.Price),
		formatOptional(rec.YieldGross),
		formatOptional(rec.YieldNet),
		formatOptional(rec.Contracts),
		formatOptional(rec.LastVolume),
		formatOptional(rec.TotalVolume),
		formatOptional(rec.ModifiedDuration),
		formatOptional(rec.YearsToMaturity),
	}

	// Oversized windows keep the newest months; the writer must not
	// panic on callers that skip the fetch-side truncation.
	volumes := rec.Volumes
	if len(volumes) > domain.VolumeMonths {
		volumes = volumes[len(volumes)-domain.VolumeMonths:]
	}

	cells := make([]string, domain.VolumeMonths)
	offset := domain.VolumeMonths - len(volumes)
	for i, mv := range volumes {
		cells[offset+i] = formatOptional(mv.Volume)
	}
	return append(row, cells...)
}

// ReadSummary loads a published run summary.
func ReadSummary(path string) (*domain.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("run summary is malformed: %w", err)
	}
	return &summary, nil
}

// ReadTable loads a published bond table. The flat file stores volume
// positions, not calendar months, so the Month field of every returned
// volume entry is the zero time.
func ReadTable(path string) ([]domain.BondRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseTable(file)
}

func parseTable(r io.Reader) ([]domain.BondRecord, error) {
	reader := csv.NewReader(&bomStrippingReader{r: r})
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("bond table has no header: %w", err)
	}
	if len(header) != len(Header()) || header[0] != "isin" {
		return nil, fmt.Errorf("unexpected bond table header")
	}

	var records []domain.BondRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bond table is malformed: %w", err)
		}
		rec, err := rowRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func rowRecord(row []string) (*domain.BondRecord, error) {
	price, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price for %s: %w", row[0], err)
	}

	rec := &domain.BondRecord{
		ISIN:             row[0],
		Issuer:           row[1],
		Category:         domain.BondCategory(row[2]),
		Coupon:           parseOptional(row[3]),
		Price:            price,
		YieldGross:       parseOptional(row[6]),
		YieldNet:         parseOptional(row[7]),
		Contracts:        parseOptional(row[8]),
		LastVolume:       parseOptional(row[9]),
		TotalVolume:      parseOptional(row[10]),
		ModifiedDuration: parseOptional(row[11]),
		YearsToMaturity:  parseOptional(row[12]),
	}

	if row[4] != "" {
		maturity, err := time.Parse(maturityLayout, row[4])
		if err != nil {
			return nil, fmt.Errorf("invalid maturity for %s: %w", row[0], err)
		}
		rec.Maturity = &maturity
	}

	for _, cell := range row[13:] {
		rec.Volumes = append(rec.Volumes, domain.MonthlyVolume{Volume: parseOptional(cell)})
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatMaturity(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(maturityLayout)
}

func parseOptional(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// bomStrippingReader drops a leading UTF-8 BOM.
type bomStrippingReader struct {
	r       io.Reader
	started bool
}

func (b *bomStrippingReader) Read(p []byte) (int, error) {
	if !b.started {
		b.started = true
		buf := make([]byte, 3)
		n, err := io.ReadFull(b.r, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		rest := buf[:n]
		if n == 3 && rest[0] == utf8BOM[0] && rest[1] == utf8BOM[1] && rest[2] == utf8BOM[2] {
			rest = nil
		}
		b.r = io.MultiReader(strings.NewReader(string(rest)), b.r)
	}
	return b.r.Read(p)
}
