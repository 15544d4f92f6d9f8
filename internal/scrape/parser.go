package scrape

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "motcli/internal/errors"
	"motcli/pkg/contracts/domain"
)

// Field labels as they appear on the MOT instrument page. The page lays
// out each datum as a left-aligned label span paired with a right-aligned
// value span inside the same table row.
const (
	labelContracts   = "Numero Contratti"
	labelLastVolume  = "Volume Ultimo"
	labelTotalVolume = "Volume totale"
	labelPrice       = "Prezzo ufficiale"
	labelYieldNet    = "Rendimento effettivo a scadenza netto"
	labelYieldGross  = "Rendimento effettivo a scadenza lordo"
	labelDuration    = "Duration modificata"
	labelMaturity    = "Scadenza"
	labelCoupon      = "Tasso Cedola su base Annua"
)

// sovereignMarkers are instrument-name tokens that identify government
// paper. Anything else is treated as corporate.
var sovereignMarkers = map[string]struct{}{
	"BTP": {}, "BTPI": {}, "BOT": {}, "CCT": {}, "CCTEU": {}, "CTZ": {},
	"BUND": {}, "BOBL": {}, "SCHATZ": {}, "OAT": {}, "BTF": {},
	"BONO": {}, "BONOS": {}, "OBL": {}, "GILT": {},
	"TESORO": {}, "TREASURY": {}, "REPUBLIC": {}, "REPUBBLICA": {},
}

// ParsePage extracts a normalized bond record from the instrument page
// HTML. Missing optional fields become nils; a record whose mandatory
// fields (issuer, price) cannot be located fails with UnparseableRecord.
// now anchors the years-to-maturity derivation.
func ParsePage(isin, html string, now time.Time) (*domain.BondRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.UnparseableRecord(isin, "invalid HTML payload")
	}

	issuer := extractIssuer(doc)
	if issuer == "" {
		return nil, apperrors.UnparseableRecord(isin, "instrument name not found")
	}

	fields := extractLabeledValues(doc)

	price := parseNumber(fields[labelPrice])
	if price == nil {
		return nil, apperrors.UnparseableRecord(isin, "official price not found")
	}

	record := &domain.BondRecord{
		ISIN:             isin,
		Issuer:           issuer,
		Category:         classifyCategory(issuer),
		Coupon:           parseNumber(fields[labelCoupon]),
		Price:            *price,
		YieldGross:       parseNumber(fields[labelYieldGross]),
		YieldNet:         parseNumber(fields[labelYieldNet]),
		Contracts:        parseNumber(fields[labelContracts]),
		LastVolume:       parseNumber(fields[labelLastVolume]),
		TotalVolume:      parseNumber(fields[labelTotalVolume]),
		ModifiedDuration: parseNumber(fields[labelDuration]),
	}

	if maturity := parseMaturity(fields[labelMaturity]); maturity != nil {
		record.Maturity = maturity
		years := round2(maturity.Sub(now).Hours() / 24 / 365)
		record.YearsToMaturity = &years
	}

	return record, nil
}

// extractLabeledValues walks every left-aligned label span and captures
// the right-aligned value span from the same table row. The first
// occurrence of a label wins. Class membership is tested with HasClass
// because the page uses modifier classes with a leading hyphen.
func extractLabeledValues(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)
	doc.Find("span.t-text").Each(func(_ int, label *goquery.Selection) {
		if !label.HasClass("-left") {
			return
		}
		name := strings.TrimSpace(label.Text())
		if name == "" {
			return
		}
		if _, exists := fields[name]; exists {
			return
		}
		value := label.Closest("tr").Find("span.t-text").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.HasClass("-right")
		}).First().Text()
		value = strings.TrimSpace(value)
		if value != "" {
			fields[name] = value
		}
	})
	return fields
}

// extractIssuer takes the instrument denomination from the page heading,
// falling back to the document title.
func extractIssuer(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if idx := strings.Index(title, " - "); idx > 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

// parseNumber normalizes an Italian-formatted numeric string ("1.234,56")
// to a float. It returns nil for empty or non-numeric input.
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseMaturity parses the day-first maturity date used on the page.
func parseMaturity(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"02/01/2006", "02/01/06", "02-01-2006", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// classifyCategory decides government vs corporate from the instrument
// denomination.
func classifyCategory(name string) domain.BondCategory {
	for _, token := range strings.Fields(strings.ToUpper(name)) {
		token = strings.Trim(token, ".,;:()")
		if _, ok := sovereignMarkers[token]; ok {
			return domain.CategoryGovernment
		}
	}
	return domain.CategoryCorporate
}
