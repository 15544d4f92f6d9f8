package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"motcli/pkg/contracts/domain"
)

// chartsRequest mirrors the payload expected by the exchange chart service.
// Field names follow the upstream API, not Go conventions.
type chartsRequest struct {
	Request chartsRequestBody `json:"request"`
}

type chartsRequestBody struct {
	SampleTime           string  `json:"SampleTime"`
	TimeFrame            string  `json:"TimeFrame"`
	RequestedDataSetType string  `json:"RequestedDataSetType"`
	ChartPriceType       string  `json:"ChartPriceType"`
	Key                  string  `json:"Key"`
	OffSet               int     `json:"OffSet"`
	FromDate             *string `json:"FromDate"`
	ToDate               *string `json:"ToDate"`
	KeyType              string  `json:"KeyType"`
	KeyType2             string  `json:"KeyType2"`
	Language             string  `json:"Language"`
}

// chartsResponse carries the monthly samples as [epochMillis, volume]
// pairs under the "d" key.
type chartsResponse struct {
	D [][]float64 `json:"d"`
}

// marketSuffix is appended to the ISIN to address the MOT segment topic.
const marketSuffix = ".MOT"

// FetchMonthlyVolumes retrieves the trailing year of monthly traded
// volumes for one ISIN, in millions, chronologically ordered with the
// newest month last. At most domain.VolumeMonths entries are returned.
func (c *Client) FetchMonthlyVolumes(ctx context.Context, isin string) ([]domain.MonthlyVolume, error) {
	payload, err := json.Marshal(chartsRequest{Request: chartsRequestBody{
		SampleTime:           "1m",
		TimeFrame:            "1y",
		RequestedDataSetType: "cvals",
		ChartPriceType:       "price",
		Key:                  isin + marketSuffix,
		KeyType:              "Topic",
		KeyType2:             "Topic",
		Language:             "it-IT",
	}})
	if err != nil {
		return nil, err
	}

	body, err := c.doWithRetry(ctx, isin, c.cfg.ChartsTimeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ChartsURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp chartsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	volumes := make([]domain.MonthlyVolume, 0, len(resp.D))
	for _, sample := range resp.D {
		if len(sample) < 2 {
			continue
		}
		month := time.UnixMilli(int64(sample[0])).UTC()
		month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		millions := round2(sample[1] / 1e6)
		volumes = append(volumes, domain.MonthlyVolume{Month: month, Volume: &millions})
	}

	sort.Slice(volumes, func(i, j int) bool {
		return volumes[i].Month.Before(volumes[j].Month)
	})

	if len(volumes) > domain.VolumeMonths {
		volumes = volumes[len(volumes)-domain.VolumeMonths:]
	}
	return volumes, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
