package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"motcli/pkg/contracts/domain"
)

// BondHandler serves the published bond table with query-side filtering.
type BondHandler struct {
	store  *SnapshotStore
	logger *slog.Logger
}

// NewBondHandler creates a bond handler over the snapshot store.
func NewBondHandler(store *SnapshotStore, logger *slog.Logger) *BondHandler {
	return &BondHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "bonds")),
	}
}

// Routes returns the bond API routes.
func (h *BondHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/bonds", h.ListBonds)
	r.Get("/summary", h.GetSummary)
	return r
}

// bondFilter is the query-string filter over the published table.
type bondFilter struct {
	isinPrefix string
	minYears   *float64
	maxYears   *float64
	maxPrice   *float64
	sortField  string
}

// bondListResponse is the envelope for GET /api/bonds.
type bondListResponse struct {
	Count       int                 `json:"count"`
	PublishedAt string              `json:"published_at"`
	Bonds       []domain.BondRecord `json:"bonds"`
}

// ListBonds handles GET /api/bonds.
func (h *BondHandler) ListBonds(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}

	filter, err := parseBondFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	bonds := applyFilter(snap.Records, filter)
	sortBonds(bonds, filter.sortField)

	render.JSON(w, r, bondListResponse{
		Count:       len(bonds),
		PublishedAt: snap.PublishedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Bonds:       bonds,
	})
}

// GetSummary handles GET /api/summary.
func (h *BondHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot(w, r)
	if snap == nil {
		return
	}
	if snap.Summary == nil {
		respondError(w, r, http.StatusNotFound, "no run summary published")
		return
	}
	render.JSON(w, r, snap.Summary)
}

// snapshot loads the current snapshot, writing the error response and
// returning nil on failure so handlers can bail out early.
func (h *BondHandler) snapshot(w http.ResponseWriter, r *http.Request) *Snapshot {
	snap, err := h.store.Snapshot()
	if err == nil {
		return snap
	}
	if err == ErrNoSnapshot {
		respondError(w, r, http.StatusServiceUnavailable, "no snapshot published yet")
		return nil
	}
	h.logger.ErrorContext(r.Context(), "snapshot load failed",
		slog.String("error", err.Error()))
	respondError(w, r, http.StatusInternalServerError, "snapshot unreadable")
	return nil
}

func parseBondFilter(r *http.Request) (bondFilter, error) {
	q := r.URL.Query()
	filter := bondFilter{
		isinPrefix: strings.ToUpper(strings.TrimSpace(q.Get("isin_prefix"))),
		sortField:  q.Get("sort"),
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"min_years", &filter.minYears},
		{"max_years", &filter.maxYears},
		{"max_price", &filter.maxPrice},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bondFilter{}, fmt.Errorf("invalid %s: %q", p.name, raw)
		}
		*p.dst = &v
	}

	switch filter.sortField {
	case "", "isin", "price", "yield", "maturity":
	default:
		return bondFilter{}, fmt.Errorf("invalid sort: %q", filter.sortField)
	}
	return filter, nil
}

func applyFilter(records []domain.BondRecord, filter bondFilter) []domain.BondRecord {
	out := make([]domain.BondRecord, 0, len(records))
	for _, rec := range records {
		if filter.isinPrefix != "" && !strings.HasPrefix(rec.ISIN, filter.isinPrefix) {
			continue
		}
		if filter.maxPrice != nil && rec.Price > *filter.maxPrice {
			continue
		}
		// Years-to-maturity bounds only apply to bonds that carry the
		// figure; the rest are excluded once a bound is set.
		if filter.minYears != nil && (rec.YearsToMaturity == nil || *rec.YearsToMaturity < *filter.minYears) {
			continue
		}
		if filter.maxYears != nil && (rec.YearsToMaturity == nil || *rec.YearsToMaturity > *filter.maxYears) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// sortBonds orders the response. Price and maturity sort ascending,
// yield descending so the most attractive issues come first; the
// default keeps the table's ISIN order.
func sortBonds(bonds []domain.BondRecord, field string) {
	switch field {
	case "price":
		sort.SliceStable(bonds, func(i, j int) bool { return bonds[i].Price < bonds[j].Price })
	case "yield":
		sort.SliceStable(bonds, func(i, j int) bool {
			return optionalDesc(bonds[i].YieldGross, bonds[j].YieldGross)
		})
	case "maturity":
		sort.SliceStable(bonds, func(i, j int) bool {
			switch {
			case bonds[i].Maturity == nil:
				return false
			case bonds[j].Maturity == nil:
				return true
			default:
				return bonds[i].Maturity.Before(*bonds[j].Maturity)
			}
		})
	}
}

// optionalDesc sorts larger values first and nils last.
func optionalDesc(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{
		"status": status,
		"error":  message,
	})
}
