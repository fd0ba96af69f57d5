package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polytrend/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(clobSrv, gammaSrv *httptest.Server) *polymarket.Client {
	clobURL := ""
	gammaURL := ""
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	return polymarket.NewClient(clobURL, gammaURL)
}

func jsonServer(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestQuoteByToken_BestAsk(t *testing.T) {
	srv := jsonServer(t, "/book", `{
		"asset_id": "tok1",
		"bids": [{"price": "0.22", "size": "100"}, {"price": "0.20", "size": "50"}],
		"asks": [{"price": "0.27", "size": "40"}, {"price": "0.25", "size": "10"}]
	}`)
	defer srv.Close()

	client := newTestClient(srv, nil)
	q, ok := client.QuoteByToken(context.Background(), "tok1")

	require.True(t, ok)
	assert.Equal(t, "clob", q.Source)
	assert.InDelta(t, 0.25, q.Yes, 0.0001)
	assert.InDelta(t, 0.75, q.No, 0.0001)
}

func TestQuoteByToken_BidsOnly(t *testing.T) {
	srv := jsonServer(t, "/book", `{
		"asset_id": "tok1",
		"bids": [{"price": "0.20", "size": "50"}, {"price": "0.23", "size": "100"}],
		"asks": []
	}`)
	defer srv.Close()

	client := newTestClient(srv, nil)
	q, ok := client.QuoteByToken(context.Background(), "tok1")

	require.True(t, ok)
	assert.InDelta(t, 0.23, q.Yes, 0.0001)
}

func TestQuoteByToken_LastTradeFallback(t *testing.T) {
	srv := jsonServer(t, "/book", `{
		"asset_id": "tok1",
		"bids": [],
		"asks": [],
		"last_trade_price": "0.31"
	}`)
	defer srv.Close()

	client := newTestClient(srv, nil)
	q, ok := client.QuoteByToken(context.Background(), "tok1")

	require.True(t, ok)
	assert.InDelta(t, 0.31, q.Yes, 0.0001)
}

func TestQuoteByToken_EmptyBook(t *testing.T) {
	srv := jsonServer(t, "/book", `{"asset_id": "tok1", "bids": [], "asks": []}`)
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, ok := client.QuoteByToken(context.Background(), "tok1")
	assert.False(t, ok)
}

func TestQuoteByToken_OutOfRangePrice(t *testing.T) {
	srv := jsonServer(t, "/book", `{
		"asset_id": "tok1",
		"asks": [{"price": "1.00", "size": "10"}]
	}`)
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, ok := client.QuoteByToken(context.Background(), "tok1")
	assert.False(t, ok)
}

func TestQuoteByToken_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, ok := client.QuoteByToken(context.Background(), "tok1")
	assert.False(t, ok)
}

func TestQuoteByToken_EmptyTokenID(t *testing.T) {
	client := newTestClient(nil, nil)
	_, ok := client.QuoteByToken(context.Background(), "")
	assert.False(t, ok)
}

func TestQuoteBySlug_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "will-it-rain", r.URL.Query().Get("slug"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"conditionId": "0xabc",
			"slug": "will-it-rain",
			"outcomePrices": "[\"0.31\", \"0.69\"]"
		}]`))
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	q, ok := client.QuoteBySlug(context.Background(), "will-it-rain")

	require.True(t, ok)
	assert.Equal(t, "gamma", q.Source)
	assert.InDelta(t, 0.31, q.Yes, 0.0001)
	assert.InDelta(t, 0.69, q.No, 0.0001)
}

func TestQuoteBySlug_ResolvedFixup(t *testing.T) {
	// Gamma colapsa el lado perdedor a 0 al resolverse el mercado.
	srv := jsonServer(t, "/markets", `[{
		"conditionId": "0xabc",
		"slug": "will-it-rain",
		"outcomePrices": "[\"1\", \"0\"]"
	}]`)
	defer srv.Close()

	client := newTestClient(nil, srv)
	q, ok := client.QuoteBySlug(context.Background(), "will-it-rain")

	require.True(t, ok)
	assert.InDelta(t, 1.0, q.Yes, 0.0001)
	assert.InDelta(t, 0.001, q.No, 0.0001)
}

func TestQuoteBySlug_NotFound(t *testing.T) {
	srv := jsonServer(t, "/markets", `[]`)
	defer srv.Close()

	client := newTestClient(nil, srv)
	_, ok := client.QuoteBySlug(context.Background(), "no-such-market")
	assert.False(t, ok)
}

func TestQuoteBySlug_EmptySlug(t *testing.T) {
	client := newTestClient(nil, nil)
	_, ok := client.QuoteBySlug(context.Background(), "")
	assert.False(t, ok)
}
