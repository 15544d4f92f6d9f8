package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known file names inside the results and reports directories.
const (
	BondTableFile      = "bond_info_extracted.csv"
	RunSummaryFile     = "run_summary.json"
	LiquidityCSVFile   = "liquidity_report.csv"
	LiquidityExcelFile = "liquidity_report.xlsx"
)

// Paths contains every filesystem location the application touches.
// Directory layout relative to the base directory:
//
//	data/        scratch space (downloaded listino copies)
//	results/     the published snapshot (bond table + run summary)
//	reports/     derived liquidity reports
//	logs/        application logs
type Paths struct {
	BaseDir    string
	DataDir    string
	ResultsDir string
	ReportsDir string
	LogsDir    string
}

// NewPaths resolves the configured directories against cfg.BaseDir. An
// empty BaseDir falls back to the executable directory so the binaries
// behave the same no matter which working directory the scheduler uses.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		base = filepath.Dir(exe)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolveDir(base, cfg.DataDir),
		ResultsDir: resolveDir(base, cfg.ResultsDir),
		ReportsDir: resolveDir(base, cfg.ReportsDir),
		LogsDir:    resolveDir(base, cfg.LogsDir),
	}, nil
}

func resolveDir(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// EnsureDirectories creates every managed directory.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ResultsDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// BondTablePath returns the location of the published results table.
func (p *Paths) BondTablePath() string {
	return filepath.Join(p.ResultsDir, BondTableFile)
}

// RunSummaryPath returns the location of the run summary JSON.
func (p *Paths) RunSummaryPath() string {
	return filepath.Join(p.ResultsDir, RunSummaryFile)
}

// LiquidityCSVPath returns the location of the liquidity report CSV.
func (p *Paths) LiquidityCSVPath() string {
	return filepath.Join(p.ReportsDir, LiquidityCSVFile)
}

// LiquidityExcelPath returns the location of the liquidity report workbook.
func (p *Paths) LiquidityExcelPath() string {
	return filepath.Join(p.ReportsDir, LiquidityExcelFile)
}

// LogPath returns the location of the named log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
