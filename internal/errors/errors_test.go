package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ScrapeError
		want string
	}{
		{
			name: "run level with cause",
			err:  SourceUnavailable("listino endpoint", errors.New("connection refused")),
			want: "SOURCE_UNAVAILABLE: listino endpoint: connection refused",
		},
		{
			name: "instrument level with cause",
			err:  FetchFailed("IT0001234567", "retries exhausted", errors.New("status 503")),
			want: "FETCH_FAILED: IT0001234567: retries exhausted: status 503",
		},
		{
			name: "instrument level without cause",
			err:  UnparseableRecord("XS0001234567", "price not found"),
			want: "UNPARSEABLE_RECORD: XS0001234567: price not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestFatalClassification(t *testing.T) {
	assert.True(t, SourceUnavailable("x", nil).Fatal())
	assert.True(t, WriteFailed("x", nil).Fatal())
	assert.False(t, FetchFailed("IT0001234567", "x", nil).Fatal())
	assert.False(t, UnparseableRecord("IT0001234567", "x").Fatal())
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(FetchFailed("IT0001234567", "x", nil)))
	assert.True(t, IsFatal(WriteFailed("x", nil)))

	// Unclassified errors must not pass silently.
	assert.True(t, IsFatal(errors.New("unexpected")))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("run failed: %w", FetchFailed("IT0001234567", "x", nil))
	assert.False(t, IsFatal(wrapped))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", UnparseableRecord("IT0001234567", "issuer missing"))
	assert.Equal(t, CodeUnparseableRecord, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("tcp timeout")
	err := FetchFailed("IT0001234567", "retries exhausted", cause)
	require.ErrorIs(t, err, cause)
}
