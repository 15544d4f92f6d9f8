package listino

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motcli/internal/config"
	apperrors "motcli/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestSource(t *testing.T, handler http.HandlerFunc) (*Source, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.SourceConfig{
		ListinoURL: srv.URL + "/listino.csv",
		Currency:   "EUR",
		Timeout:    5 * time.Second,
	}
	return NewSource(cfg, discardLogger()), srv
}

func TestLoadFiltersDedupesAndSorts(t *testing.T) {
	body := "ISIN Code;Description;Currency\n" +
		"XS0000000009;Corp bond;EUR\n" +
		"IT0000000007;Gov bond;EUR\n" +
		"IT0000000007;Gov bond dup;EUR\n" +
		"US0378331005;Dollar bond;USD\n" +
		"FR0000000002;Gov bond;eur\n"

	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})

	isins, err := source.Load(context.Background())
	require.NoError(t, err)

	// Distinct EUR instruments only, ascending; currency match is
	// case-insensitive; the USD row is excluded.
	assert.Equal(t, []string{"FR0000000002", "IT0000000007", "XS0000000009"}, isins)
}

func TestLoadDropsMalformedISIN(t *testing.T) {
	body := "ISIN Code;Currency\n" +
		"IT0000000007;EUR\n" +
		"NOT-AN-ISIN;EUR\n" +
		"IT0000000008;EUR\n" // bad check digit

	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})

	isins, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"IT0000000007"}, isins)
}

func TestLoadServerError(t *testing.T) {
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := source.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.CodeOf(err))
}

func TestLoadUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := config.SourceConfig{ListinoURL: url, Currency: "EUR", Timeout: time.Second}
	source := NewSource(cfg, discardLogger())

	_, err := source.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsFatal(err))
}

func TestLoadMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no isin column", "Code;Currency\nIT0000000007;EUR\n"},
		{"no currency column", "ISIN Code;Description\nIT0000000007;Gov\n"},
		{"empty body", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := source.Load(context.Background())
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.CodeOf(err))
		})
	}
}

func TestLoadNoUsableRows(t *testing.T) {
	source, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ISIN Code;Currency\nUS0378331005;USD\n")
	})

	_, err := source.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSourceUnavailable, apperrors.CodeOf(err))
}
