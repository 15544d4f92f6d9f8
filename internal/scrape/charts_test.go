package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartsPayload(samples [][]float64) string {
	data, _ := json.Marshal(map[string]any{"d": samples})
	return string(data)
}

func epochMillis(year int, month time.Month) float64 {
	return float64(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
}

func TestFetchMonthlyVolumes(t *testing.T) {
	var gotBody chartsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = io.WriteString(w, chartsPayload([][]float64{
			{epochMillis(2026, time.March), 2_500_000},
			{epochMillis(2026, time.January), 1_000_000},
			{epochMillis(2026, time.February), 3_333_333},
		}))
	}))
	defer srv.Close()

	client := NewClient(testScrapeConfig(srv.URL+"/", srv.URL), discardLogger())
	volumes, err := client.FetchMonthlyVolumes(context.Background(), "IT0000000007")
	require.NoError(t, err)

	// Request addresses the MOT topic for the instrument.
	assert.Equal(t, "IT0000000007.MOT", gotBody.Request.Key)
	assert.Equal(t, "1m", gotBody.Request.SampleTime)
	assert.Equal(t, "1y", gotBody.Request.TimeFrame)

	// Chronological, volumes in millions rounded to two decimals.
	require.Len(t, volumes, 3)
	assert.Equal(t, time.January, volumes[0].Month.Month())
	assert.Equal(t, time.March, volumes[2].Month.Month())
	assert.Equal(t, 1.0, *volumes[0].Volume)
	assert.Equal(t, 3.33, *volumes[1].Volume)
	assert.Equal(t, 2.5, *volumes[2].Volume)
}

func TestFetchMonthlyVolumesCapsAtTwelve(t *testing.T) {
	samples := make([][]float64, 0, 15)
	for i := 0; i < 15; i++ {
		month := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		samples = append(samples, []float64{float64(month.UnixMilli()), float64(i+1) * 1e6})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chartsPayload(samples))
	}))
	defer srv.Close()

	client := NewClient(testScrapeConfig(srv.URL+"/", srv.URL), discardLogger())
	volumes, err := client.FetchMonthlyVolumes(context.Background(), "IT0000000007")
	require.NoError(t, err)

	// Only the trailing twelve months survive, newest last.
	require.Len(t, volumes, 12)
	assert.Equal(t, 4.0, *volumes[0].Volume)
	assert.Equal(t, 15.0, *volumes[11].Volume)
}

func TestFetchMonthlyVolumesMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>cloudflare says no</html>")
	}))
	defer srv.Close()

	client := NewClient(testScrapeConfig(srv.URL+"/", srv.URL), discardLogger())
	_, err := client.FetchMonthlyVolumes(context.Background(), "IT0000000007")
	assert.Error(t, err)
}

func TestFetchMonthlyVolumesSkipsShortSamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"d": [[%v, 1000000], [123]]}`, epochMillis(2026, time.May))
	}))
	defer srv.Close()

	client := NewClient(testScrapeConfig(srv.URL+"/", srv.URL), discardLogger())
	volumes, err := client.FetchMonthlyVolumes(context.Background(), "IT0000000007")
	require.NoError(t, err)
	require.Len(t, volumes, 1)
	assert.Equal(t, 1.0, *volumes[0].Volume)
}
