package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeRESTFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ticker", r.URL.Path)
		assert.Equal(t, "BTCUSD,ETHUSD", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"BTCUSD":64000.5,"ETHUSD":3000.1,"DOGEUSD":0.1}`))
	}))
	defer server.Close()

	exchange := NewExchangeREST("kraken", server.URL)
	snapshot, err := exchange.FetchPrices(context.Background(), pairs("BTC", "ETH"))

	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, 64000.5, snapshot["bitcoin"].Value)
	assert.Equal(t, 3000.1, snapshot["ethereum"].Value)
}

func TestExchangeRESTQuoteOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCEUR", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"BTCEUR":59000.0}`))
	}))
	defer server.Close()

	exchange := NewExchangeREST("kraken", server.URL, WithExchangeRESTQuote("EUR"))
	snapshot, err := exchange.FetchPrices(context.Background(), pairs("BTC"))

	require.NoError(t, err)
	assert.Equal(t, 59000.0, snapshot["bitcoin"].Value)
}

func TestExchangeRESTErrorKinds(t *testing.T) {
	tt := []struct {
		name    string
		handler http.HandlerFunc
		kind    FetchKind
	}{
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[1,2`))
			},
			kind: KindMalformed,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			kind: KindRateLimited,
		},
		{
			name: "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			kind: KindUnreachable,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			exchange := NewExchangeREST("kraken", server.URL)
			_, err := exchange.FetchPrices(context.Background(), pairs("BTC"))

			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tc.kind, fetchErr.Kind)
			assert.Equal(t, "kraken", fetchErr.Provider)
		})
	}
}

func TestExchangeRESTTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	exchange := NewExchangeREST("kraken", server.URL, WithExchangeRESTTimeout(20*time.Millisecond))
	_, err := exchange.FetchPrices(context.Background(), pairs("BTC"))

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindTimeout, fetchErr.Kind)
}
