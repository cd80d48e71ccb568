package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
)

func testDraft() contracts.MarketDraft {
	return contracts.MarketDraft{
		ID:               "d-1",
		Question:         "Will BTC break above $65280 within 24 hours?",
		Category:         contracts.CategoryCrypto,
		OutcomeA:         "YES",
		OutcomeB:         "NO",
		DurationHours:    24,
		ResolutionSource: "https://www.binance.com/en/trade/BTC_USDT",
	}
}

func TestHTTPPublisher_PublishDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "draft:d-1", r.Header.Get("Idempotency-Key"))

		var in contracts.MarketDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "d-1", in.ID)

		_, _ = w.Write([]byte(`{"market_id":"mkt-42"}`))
	}))
	defer server.Close()

	pub := NewHTTPPublisher(httputil.New(logger.Nop(), time.Second).DisableRetry(), logger.Nop(), server.URL+"/", "s3cret")
	id, err := pub.PublishDraft(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "mkt-42", id)
}

// an authority that creates the market, then fails before answering, and
// deduplicates the retry by its Idempotency-Key
func TestHTTPPublisher_RetryCreatesOnce(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
		created  = map[string]string{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts++

		key := r.Header.Get("Idempotency-Key")
		assert.NotEmpty(t, key)
		id, seen := created[key]
		if !seen {
			id = fmt.Sprintf("mkt-%d", len(created)+1)
			created[key] = id
		}
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprintf(w, `{"market_id":%q}`, id)
	}))
	defer server.Close()

	client := httputil.New(logger.Nop(), time.Second).WithRetry(2, 10*time.Millisecond)
	pub := NewHTTPPublisher(client, logger.Nop(), server.URL, "")

	id, err := pub.PublishDraft(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "mkt-1", id)
	assert.Equal(t, 2, attempts)
	assert.Len(t, created, 1, "the retried create reached the authority under one key")
}

func TestHTTPPublisher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"empty id", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			pub := NewHTTPPublisher(httputil.New(logger.Nop(), time.Second).DisableRetry(), logger.Nop(), server.URL, "")
			_, err := pub.PublishDraft(context.Background(), testDraft())
			assert.ErrorIs(t, err, contracts.ErrPublishFailed)
		})
	}
}

func TestHTTPPublisher_PublishResolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/flash_BTC_USDT_20261015_1000/resolve", r.URL.Path)
		assert.Equal(t, "resolution:flash_BTC_USDT_20261015_1000", r.Header.Get("Idempotency-Key"))

		var in map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "GREEN", in["outcome"])
		assert.Equal(t, "2026-10-15T10:16:00Z", in["checked_at"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pub := NewHTTPPublisher(httputil.New(logger.Nop(), time.Second).DisableRetry(), logger.Nop(), server.URL, "")
	inst := contracts.MarketInstance{ID: "flash_BTC_USDT_20261015_1000", Kind: contracts.KindFlash, Assets: []string{"BTC/USDT"}}
	res := contracts.Resolution{
		InstanceID: inst.ID,
		Outcome:    contracts.OutcomeGreen,
		CheckedAt:  time.Date(2026, 10, 15, 10, 16, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishResolution(context.Background(), inst, res))
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(logger.Nop())

	id, err := pub.PublishDraft(context.Background(), testDraft())
	require.NoError(t, err)
	assert.Equal(t, "local_d-1", id)
	assert.NoError(t, pub.PublishResolution(context.Background(), contracts.MarketInstance{ID: "x"}, contracts.Resolution{}))
}
