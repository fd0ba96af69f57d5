package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow deja a londres (offset 0) en hora de escaneo.
var fixedNow = time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

func newTestDiscovery(srv *httptest.Server, cities ...string) *Discovery {
	cfg := DefaultDiscoveryConfig()
	cfg.Cities = cities
	cfg.DaysAhead = 0
	d := NewDiscovery(NewClient("", srv.URL), cfg)
	d.now = func() time.Time { return fixedNow }
	return d
}

func TestCandidates_FiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "highest-temperature-in-london-on-september-1-2026", r.URL.Query().Get("slug"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"slug": "highest-temperature-in-london-on-september-1-2026",
			"markets": [
				{"conditionId": "0xnear", "question": "85F or above?", "slug": "near",
				 "outcomePrices": "[\"0.24\", \"0.76\"]", "volume": "500",
				 "clobTokenIds": "[\"ty1\", \"tn1\"]", "endDate": "2026-09-01T22:00:00Z"},
				{"conditionId": "0xfar", "question": "80F or above?", "slug": "far",
				 "outcomePrices": "[\"0.12\", \"0.88\"]", "volume": "300",
				 "clobTokenIds": "[\"ty2\", \"tn2\"]", "endDate": "2026-09-01T22:00:00Z"},
				{"conditionId": "0xhot", "question": "75F or above?", "slug": "hot",
				 "outcomePrices": "[\"0.45\", \"0.55\"]", "volume": "900",
				 "clobTokenIds": "[\"ty3\", \"tn3\"]", "endDate": "2026-09-01T22:00:00Z"},
				{"conditionId": "0xthin", "question": "88F or above?", "slug": "thin",
				 "outcomePrices": "[\"0.25\", \"0.75\"]", "volume": "150",
				 "clobTokenIds": "[\"ty4\", \"tn4\"]", "endDate": "2026-09-01T22:00:00Z"},
				{"conditionId": "0xknown", "question": "86F or above?", "slug": "known",
				 "outcomePrices": "[\"0.25\", \"0.75\"]", "volume": "500",
				 "clobTokenIds": "[\"ty5\", \"tn5\"]", "endDate": "2026-09-01T22:00:00Z"},
				{"conditionId": "0xstale", "question": "84F or above?", "slug": "stale",
				 "outcomePrices": "[\"0.25\", \"0.75\"]", "volume": "500",
				 "clobTokenIds": "[\"ty6\", \"tn6\"]", "endDate": "2026-08-20T22:00:00Z"}
			]
		}]`))
	}))
	defer srv.Close()

	d := newTestDiscovery(srv, "london")
	skip := map[string]struct{}{"0xknown": {}}

	got, err := d.Candidates(context.Background(), skip)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordenados por cercanía al centro de la banda de entrada.
	assert.Equal(t, "0xnear", got[0].ConditionID)
	assert.Equal(t, "0xfar", got[1].ConditionID)
	assert.Equal(t, "london", got[0].City)
	assert.Equal(t, "ty1", got[0].YesTokenID)
}

func TestCandidates_CityNotReadySkipped(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	// En seattle (UTC-8) son las 10:00 locales: aún no se escanea.
	d := newTestDiscovery(srv, "seattle")
	got, err := d.Candidates(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls)
}

func TestCandidates_EventFetchFailureContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := newTestDiscovery(srv, "london", "paris")
	got, err := d.Candidates(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidates_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDiscovery(srv, "london")
	_, err := d.Candidates(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCityIsReady(t *testing.T) {
	d := NewDiscovery(NewClient("", ""), DefaultDiscoveryConfig())
	d.now = func() time.Time { return fixedNow }
	today := fixedNow.Truncate(24 * time.Hour)

	// londres 18:00 local: lista.
	assert.True(t, d.cityIsReady("london", today))
	// seattle 10:00 local: antes de la hora mínima.
	assert.False(t, d.cityIsReady("seattle", today))
	// wellington (UTC+13) ya está en el día siguiente, pero a las 07:00.
	assert.False(t, d.cityIsReady("wellington", today))
	assert.False(t, d.cityIsReady("wellington", today.AddDate(0, 0, 1)))

	// A las 23:00 UTC wellington alcanza su mediodía del día siguiente.
	d.now = func() time.Time { return fixedNow.Add(5 * time.Hour) }
	assert.True(t, d.cityIsReady("wellington", today.AddDate(0, 0, 1)))
	// ciudad sin offset configurado.
	assert.False(t, d.cityIsReady("atlantis", today))
}

func TestBuildEventSlug(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "highest-temperature-in-nyc-on-september-1-2026", buildEventSlug("nyc", date))
}
