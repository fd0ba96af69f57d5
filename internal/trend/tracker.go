// Package trend mantiene el historial de precios YES por mercado y detecta
// uptrends sostenidos. Un mercado califica cuando las últimas K observaciones
// suben estrictamente Y la subida total alcanza el mínimo configurado: las
// dos condiciones juntas rechazan tanto el ruido plano como los picos de un
// solo tick.
package trend

import (
	"sync"
	"time"
)

// maxHistoryPerMarket limita el historial por mercado; al superarlo se
// descartan las observaciones más antiguas.
const maxHistoryPerMarket = 50

var timeNow = time.Now

type observation struct {
	at    time.Time
	price float64
}

// Config controla la detección de uptrend.
type Config struct {
	MinObservations int     // K: ventana mínima para evaluar trend
	MinRise         float64 // subida total mínima (last − first) de la ventana
}

// DefaultConfig devuelve los umbrales de producción.
func DefaultConfig() Config {
	return Config{MinObservations: 4, MinRise: 0.05}
}

// MarketTrend es la vista de observabilidad de un mercado trackeado.
type MarketTrend struct {
	Observations int     `json:"observations"`
	FirstPrice   float64 `json:"first_price"`
	LastPrice    float64 `json:"last_price"`
	TotalRise    float64 `json:"total_rise"`
	HasUptrend   bool    `json:"has_uptrend"`
}

// Tracker guarda las observaciones por mercado. Todos los métodos son
// seguros para llamar desde cualquier worker: serializan sobre un mutex
// propio, independiente del lock del portfolio.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	history map[string][]observation
}

// NewTracker crea un Tracker vacío.
func NewTracker(cfg Config) *Tracker {
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = DefaultConfig().MinObservations
	}
	if cfg.MinRise <= 0 {
		cfg.MinRise = DefaultConfig().MinRise
	}
	return &Tracker{cfg: cfg, history: make(map[string][]observation)}
}

// Record añade una observación con timestamp actual y recorta el historial
// a las últimas maxHistoryPerMarket entradas.
func (t *Tracker) Record(conditionID string, yesPrice float64) {
	now := timeNow()
	t.mu.Lock()
	defer t.mu.Unlock()

	hist := append(t.history[conditionID], observation{at: now, price: yesPrice})
	if len(hist) > maxHistoryPerMarket {
		hist = hist[len(hist)-maxHistoryPerMarket:]
	}
	t.history[conditionID] = hist
}

// HasUptrend devuelve true si las últimas K observaciones suben
// estrictamente (cualquier empate o bajada invalida la ventana) y la subida
// total alcanza MinRise. Con menos de K observaciones siempre es false.
func (t *Tracker) HasUptrend(conditionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasUptrendLocked(t.history[conditionID])
}

func (t *Tracker) hasUptrendLocked(hist []observation) bool {
	if len(hist) < t.cfg.MinObservations {
		return false
	}
	window := hist[len(hist)-t.cfg.MinObservations:]
	for i := 1; i < len(window); i++ {
		if window[i].price <= window[i-1].price {
			return false
		}
	}
	return window[len(window)-1].price-window[0].price >= t.cfg.MinRise
}

// ObservationCount devuelve cuántas observaciones hay para un mercado.
func (t *Tracker) ObservationCount(conditionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history[conditionID])
}

// SnapshotAll devuelve el estado de todos los mercados trackeados.
func (t *Tracker) SnapshotAll() map[string]MarketTrend {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]MarketTrend, len(t.history))
	for cid, hist := range t.history {
		if len(hist) == 0 {
			continue
		}
		out[cid] = MarketTrend{
			Observations: len(hist),
			FirstPrice:   hist[0].price,
			LastPrice:    hist[len(hist)-1].price,
			TotalRise:    hist[len(hist)-1].price - hist[0].price,
			HasUptrend:   t.hasUptrendLocked(hist),
		}
	}
	return out
}

// PurgeStale elimina el historial completo de los mercados cuya última
// observación es más vieja que ttl. El purge es todo-o-nada por mercado:
// una sola observación reciente mantiene vivo el historial entero.
// Devuelve cuántos mercados se purgaron.
func (t *Tracker) PurgeStale(ttl time.Duration) int {
	cutoff := timeNow().Add(-ttl)
	t.mu.Lock()
	defer t.mu.Unlock()

	purged := 0
	for cid, hist := range t.history {
		if len(hist) > 0 && hist[len(hist)-1].at.Before(cutoff) {
			delete(t.history, cid)
			purged++
		}
	}
	return purged
}
