package exporter

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
	"motcli/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestWriter(t *testing.T) (*Writer, *config.Paths) {
	t.Helper()
	cfg := config.Default().Paths
	cfg.BaseDir = t.TempDir()
	paths, err := config.NewPaths(cfg)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return NewWriter(paths, discardLogger()), paths
}

func ptr(v float64) *float64 { return &v }

func sampleRecord() domain.BondRecord {
	maturity := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)
	return domain.BondRecord{
		ISIN:             "IT0000000007",
		Issuer:           "Btp Tf 3% Mz30 Eur",
		Category:         domain.CategoryGovernment,
		Coupon:           ptr(3),
		Maturity:         &maturity,
		Price:            99.87,
		YieldGross:       ptr(2.64),
		YieldNet:         ptr(2.31),
		Contracts:        ptr(1204),
		ModifiedDuration: ptr(4.12),
		YearsToMaturity:  ptr(4.0),
		Volumes: []domain.MonthlyVolume{
			{Month: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), Volume: ptr(2.5)},
			{Month: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), Volume: ptr(3.1)},
		},
	}
}

func TestHeaderShape(t *testing.T) {
	header := Header()
	assert.Len(t, header, 13+domain.VolumeMonths)
	assert.Equal(t, "isin", header[0])
	assert.Equal(t, "volume_month_1", header[13])
	assert.Equal(t, "volume_month_12", header[len(header)-1])
}

func TestWriteAndReadTableRoundTrip(t *testing.T) {
	writer, paths := newTestWriter(t)

	require.NoError(t, writer.WriteTable([]domain.BondRecord{sampleRecord()}))

	records, err := ReadTable(paths.BondTablePath())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "IT0000000007", rec.ISIN)
	assert.Equal(t, "Btp Tf 3% Mz30 Eur", rec.Issuer)
	assert.Equal(t, domain.CategoryGovernment, rec.Category)
	assert.Equal(t, 99.87, rec.Price)
	require.NotNil(t, rec.Coupon)
	assert.Equal(t, 3.0, *rec.Coupon)
	require.NotNil(t, rec.Maturity)
	assert.Equal(t, "2030-03-01", rec.Maturity.Format("2006-01-02"))

	// Two populated months land in the last two volume columns.
	require.Len(t, rec.Volumes, domain.VolumeMonths)
	assert.Nil(t, rec.Volumes[0].Volume)
	require.NotNil(t, rec.Volumes[10].Volume)
	assert.Equal(t, 2.5, *rec.Volumes[10].Volume)
	require.NotNil(t, rec.Volumes[11].Volume)
	assert.Equal(t, 3.1, *rec.Volumes[11].Volume)
}

func TestWriteTableNullPolicy(t *testing.T) {
	writer, paths := newTestWriter(t)

	rec := domain.BondRecord{
		ISIN:     "XS0000000009",
		Issuer:   "Corp Tf 4% Gn31",
		Category: domain.CategoryCorporate,
		Price:    101.2,
	}
	require.NoError(t, writer.WriteTable([]domain.BondRecord{rec}))

	records, err := ReadTable(paths.BondTablePath())
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Optional fields come back as explicit nulls, never as zeros.
	assert.Nil(t, records[0].Coupon)
	assert.Nil(t, records[0].Maturity)
	assert.Nil(t, records[0].YieldGross)
	for _, mv := range records[0].Volumes {
		assert.Nil(t, mv.Volume)
	}
}

func TestWriteTableTruncatesOversizedVolumeWindow(t *testing.T) {
	writer, paths := newTestWriter(t)

	rec := sampleRecord()
	rec.Volumes = nil
	month := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < domain.VolumeMonths+2; i++ {
		rec.Volumes = append(rec.Volumes, domain.MonthlyVolume{Month: month, Volume: ptr(float64(i + 1))})
		month = month.AddDate(0, 1, 0)
	}

	require.NoError(t, writer.WriteTable([]domain.BondRecord{rec}))

	records, err := ReadTable(paths.BondTablePath())
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Only the newest twelve months survive.
	require.Len(t, records[0].Volumes, domain.VolumeMonths)
	require.NotNil(t, records[0].Volumes[0].Volume)
	assert.Equal(t, 3.0, *records[0].Volumes[0].Volume)
	require.NotNil(t, records[0].Volumes[11].Volume)
	assert.Equal(t, 14.0, *records[0].Volumes[11].Volume)
}

func TestWriteTableReplacesPreviousSnapshot(t *testing.T) {
	writer, paths := newTestWriter(t)

	require.NoError(t, writer.WriteTable([]domain.BondRecord{sampleRecord()}))
	first, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)

	other := sampleRecord()
	other.ISIN = "FR0000000002"
	require.NoError(t, writer.WriteTable([]domain.BondRecord{other}))

	second, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	records, err := ReadTable(paths.BondTablePath())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "FR0000000002", records[0].ISIN)
}

func TestWriteTableIsDeterministic(t *testing.T) {
	writer, paths := newTestWriter(t)
	records := []domain.BondRecord{sampleRecord()}

	require.NoError(t, writer.WriteTable(records))
	first, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)

	require.NoError(t, writer.WriteTable(records))
	second, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)

	// Unchanged input produces a byte-identical table.
	assert.Equal(t, first, second)
}

func TestWriteTableLeavesNoTempFiles(t *testing.T) {
	writer, paths := newTestWriter(t)
	require.NoError(t, writer.WriteTable([]domain.BondRecord{sampleRecord()}))

	entries, err := os.ReadDir(paths.ResultsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, config.BondTableFile, entries[0].Name())
}

func TestWriteTableFailureLeavesPriorFileIntact(t *testing.T) {
	writer, paths := newTestWriter(t)

	require.NoError(t, writer.WriteTable([]domain.BondRecord{sampleRecord()}))
	before, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)

	// A second writer whose results directory is occupied by a regular
	// file cannot create its temp file.
	brokenCfg := config.Default().Paths
	brokenCfg.BaseDir = t.TempDir()
	broken, err := config.NewPaths(brokenCfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(broken.ResultsDir, []byte("in the way"), 0o644))

	err = NewWriter(broken, discardLogger()).WriteTable([]domain.BondRecord{sampleRecord()})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeWriteFailed, apperrors.CodeOf(err))

	// The snapshot written earlier is untouched by the failed write.
	after, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteTableStartsWithBOM(t *testing.T) {
	writer, paths := newTestWriter(t)
	require.NoError(t, writer.WriteTable(nil))

	data, err := os.ReadFile(paths.BondTablePath())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 3)
	assert.Equal(t, utf8BOM, data[:3])
	assert.True(t, strings.HasPrefix(string(data[3:]), "isin,issuer,"))
}

func TestWriteAndReadSummary(t *testing.T) {
	writer, paths := newTestWriter(t)

	summary := domain.RunSummary{
		RunID:      "3b241101-e2bb-4255-8caf-4136c566a964",
		StartedAt:  time.Now().Add(-time.Minute).UTC(),
		FinishedAt: time.Now().UTC(),
		Attempted:  2,
		Succeeded:  1,
		Skipped:    1,
		Skips: []domain.SkipEntry{
			{ISIN: "XX0000000002", Reason: "FETCH_FAILED", Detail: "status 404"},
		},
	}
	require.NoError(t, writer.WriteSummary(summary))

	loaded, err := ReadSummary(paths.RunSummaryPath())
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, loaded.RunID)
	assert.Equal(t, summary.Attempted, loaded.Attempted)
	require.Len(t, loaded.Skips, 1)
	assert.Equal(t, "FETCH_FAILED", loaded.Skips[0].Reason)
}

func TestReadTableRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

	_, err := ReadTable(path)
	assert.Error(t, err)
}
