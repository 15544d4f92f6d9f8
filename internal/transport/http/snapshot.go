package http

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"motcli/internal/config"
	"motcli/internal/exporter"
	"motcli/pkg/contracts/domain"
)

// ErrNoSnapshot reports that no run has published results yet.
var ErrNoSnapshot = errors.New("no published snapshot")

// Snapshot is one consistent view of the published results.
type Snapshot struct {
	Records     []domain.BondRecord
	Summary     *domain.RunSummary
	PublishedAt time.Time
}

// SnapshotStore serves the latest published snapshot, reloading from
// disk only when the table file changes. The atomic rename on the
// writer side guarantees a reload never observes a half-written table.
type SnapshotStore struct {
	paths  *config.Paths
	logger *slog.Logger

	mu       sync.Mutex
	cached   *Snapshot
	tableMod time.Time
}

// NewSnapshotStore creates a store over the configured results directory.
func NewSnapshotStore(paths *config.Paths, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{paths: paths, logger: logger}
}

// Snapshot returns the current snapshot, or ErrNoSnapshot when no table
// has been published.
func (s *SnapshotStore) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.paths.BondTablePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	if s.cached != nil && info.ModTime().Equal(s.tableMod) {
		return s.cached, nil
	}

	records, err := exporter.ReadTable(s.paths.BondTablePath())
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Records:     records,
		PublishedAt: info.ModTime(),
	}

	// The summary is best effort: an older layout may not have one.
	summary, err := exporter.ReadSummary(s.paths.RunSummaryPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("run summary unreadable", slog.String("error", err.Error()))
		}
	} else {
		snap.Summary = summary
	}

	s.cached = snap
	s.tableMod = info.ModTime()
	s.logger.Info("snapshot reloaded",
		slog.Int("records", len(records)),
		slog.Time("published_at", snap.PublishedAt))
	return snap, nil
}
