// Package engine orquesta los dos workers del bot sobre el portfolio
// compartido:
//
//   - scan worker (intervalo grueso): discovery → precio CLOB → trend →
//     entry gate → aperturas → updates → liquidaciones → salidas
//     progresivas → persistencia
//   - price worker (intervalo fino): re-cotiza las posiciones abiertas vía
//     el Arbiter y aplica resoluciones/stop loss
//
// El portfolio es el único estado compartido entre los dos y se protege con
// su lock exclusivo; las llamadas de red nunca se hacen con el lock tomado.
// Un watchdog dentro del scan worker reinicia el price worker si su
// goroutine muere. Ningún fallo de un sweep es fatal: se loguea y el worker
// sigue en su siguiente iteración.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/metrics"
	"github.com/alejandrodnm/polytrend/internal/portfolio"
	"github.com/alejandrodnm/polytrend/internal/ports"
	"github.com/alejandrodnm/polytrend/internal/trend"
)

// Config controla los intervalos y el entry gate del engine.
type Config struct {
	ScanInterval    time.Duration // ciclo de scan completo
	RefreshInterval time.Duration // refresh de precios de posiciones

	EntryYesMin float64 // banda estrecha de entrada
	EntryYesMax float64

	SizeMinPct float64 // % de capital disponible en EntryYesMin
	SizeMaxPct float64 // % de capital disponible en EntryYesMax

	// MaxVerify limita cuántos candidatos se verifican contra el CLOB por
	// ciclo; el resto espera al siguiente.
	MaxVerify int

	// TrendMinObservations: entrada "stable" con ≥ N observaciones en
	// banda aunque no haya uptrend estricto.
	TrendMinObservations int

	// HistoryTTL: mercados sin observaciones nuevas en este tiempo se
	// purgan del trend tracker.
	HistoryTTL time.Duration
}

// DefaultConfig devuelve la configuración de producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval:         30 * time.Second,
		RefreshInterval:      10 * time.Second,
		EntryYesMin:          0.22,
		EntryYesMax:          0.27,
		SizeMinPct:           0.05,
		SizeMaxPct:           0.10,
		MaxVerify:            20,
		TrendMinObservations: 4,
		HistoryTTL:           time.Hour,
	}
}

// Engine es el orquestador. Se construye con todas las dependencias
// inyectadas; no hay singletons.
type Engine struct {
	cfg       Config
	portfolio *portfolio.Portfolio
	trends    *trend.Tracker
	discovery ports.CandidateProvider
	books     ports.TokenQuoter
	markets   ports.MarketQuoter
	store     ports.Storage  // opcional
	notifier  ports.Notifier // opcional

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	refreshDone chan struct{} // cerrado cuando el price worker sale

	scanCount   atomic.Int64
	lastScan    atomic.Int64 // unix nano, 0 = nunca
	lastRefresh atomic.Int64
}

// New crea un Engine parado.
func New(
	cfg Config,
	pf *portfolio.Portfolio,
	trends *trend.Tracker,
	discovery ports.CandidateProvider,
	books ports.TokenQuoter,
	markets ports.MarketQuoter,
	store ports.Storage,
	notifier ports.Notifier,
) *Engine {
	return &Engine{
		cfg:       cfg,
		portfolio: pf,
		trends:    trends,
		discovery: discovery,
		books:     books,
		markets:   markets,
		store:     store,
		notifier:  notifier,
	}
}

// Start arranca los dos workers. No-op si ya están corriendo.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	e.startRefreshWorkerLocked(runCtx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.scanLoop(runCtx)
	}()

	slog.Info("engine started",
		"scan_interval", e.cfg.ScanInterval,
		"refresh_interval", e.cfg.RefreshInterval,
	)
}

// Stop para los dos workers y espera a que salgan. Los sweeps en curso
// terminan (acotados por los timeouts de red); no se abortan a mitad.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	slog.Info("engine stopped")
}

// Running informa si los workers están activos.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status es el estado del engine para reporting.
type Status struct {
	Running     bool       `json:"running"`
	ScanCount   int64      `json:"scan_count"`
	LastScan    *time.Time `json:"last_scan"`
	LastRefresh *time.Time `json:"last_refresh"`
}

// EngineStatus devuelve contadores y timestamps de los workers.
func (e *Engine) EngineStatus() Status {
	st := Status{
		Running:   e.Running(),
		ScanCount: e.scanCount.Load(),
	}
	if ns := e.lastScan.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		st.LastScan = &t
	}
	if ns := e.lastRefresh.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		st.LastRefresh = &t
	}
	return st
}

// ── Workers ────────────────────────────────────────────────────────────────

// scanLoop corre el ciclo de scan cada ScanInterval hasta que el contexto
// se cancele. El primer ciclo se ejecuta inmediatamente.
func (e *Engine) scanLoop(ctx context.Context) {
	e.safeScanCycle(ctx)

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scan worker stopped")
			return
		case <-ticker.C:
			e.safeScanCycle(ctx)
		}
	}
}

// safeScanCycle aísla el ciclo: cualquier error o panic se loguea y el
// worker sigue en la siguiente iteración.
func (e *Engine) safeScanCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scan cycle panicked", "panic", r)
		}
	}()
	if err := e.runScanCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
	}
}

// startRefreshWorkerLocked lanza el price worker. Caller debe tener e.mu.
func (e *Engine) startRefreshWorkerLocked(ctx context.Context) {
	done := make(chan struct{})
	e.refreshDone = done

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(done)
		e.refreshLoop(ctx)
	}()
}

// refreshLoop re-cotiza las posiciones abiertas cada RefreshInterval.
func (e *Engine) refreshLoop(ctx context.Context) {
	slog.Info("price worker started")

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("price worker stopped")
			return
		case <-ticker.C:
			e.safeRefreshSweep(ctx)
		}
	}
}

func (e *Engine) safeRefreshSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("refresh sweep panicked", "panic", r)
		}
	}()
	e.RefreshOnce(ctx)
}

// checkWatchdog reinicia el price worker si su goroutine murió. El price
// worker no se auto-recupera de una salida inesperada; este check del scan
// worker es su supervisor.
func (e *Engine) checkWatchdog(ctx context.Context) {
	e.mu.Lock()
	done := e.refreshDone
	running := e.running
	e.mu.Unlock()

	if !running || done == nil {
		return
	}

	select {
	case <-done:
		if ctx.Err() != nil {
			return
		}
		slog.Warn("price worker died, restarting")
		metrics.WorkerRestarts.Inc()
		e.mu.Lock()
		e.startRefreshWorkerLocked(ctx)
		e.mu.Unlock()
	default:
	}
}

// ── Scan cycle ─────────────────────────────────────────────────────────────

// RunOnce ejecuta exactamente un ciclo de scan. Lo usan el flag -once y el
// propio scan worker.
func (e *Engine) RunOnce(ctx context.Context) error {
	return e.runScanCycle(ctx)
}

func (e *Engine) runScanCycle(ctx context.Context) error {
	start := time.Now()
	e.scanCount.Add(1)
	e.checkWatchdog(ctx)

	// 1. IDs a saltar: mercados ya abiertos o cerrados.
	e.portfolio.Lock()
	known := e.portfolio.KnownConditionIDs()
	e.portfolio.Unlock()

	// 2. Discovery: banda ancha para construir trend antes de la entrada.
	candidates, err := e.discovery.Candidates(ctx, known)
	if err != nil {
		return fmt.Errorf("engine.runScanCycle: discovery: %w", err)
	}

	// 3. Precio CLOB → trend tracker → entry gate.
	confirmed := e.verifyCandidates(ctx, candidates)

	// 4. Re-cotizar posiciones abiertas, CLOB → Gamma fallback.
	quotes := e.quoteOpenPositions(ctx)

	// 5. Operaciones de portfolio, todas bajo un solo lock.
	var (
		closedRecs []domain.ClosedPosition
		openCopies []domain.Position
		state      domain.CapitalState
		snap       portfolio.Snapshot
	)
	e.portfolio.Lock()
	for _, c := range confirmed {
		if !e.portfolio.CanOpen() {
			break
		}
		if !e.portfolio.RegionHasCapacity(c.City) {
			slog.Info("region full, skipping",
				"city", c.City, "question", truncate(c.Question, 30))
			continue
		}
		amount := positionSize(e.portfolio.CapitalAvailable(), c.YesPrice, e.cfg)
		if amount < 1 {
			continue
		}
		e.portfolio.Open(c, amount)
		slog.Info("position opened",
			"question", truncate(c.Question, 40),
			"yes_cents", c.YesPrice*100,
			"amount", amount,
		)
	}

	if len(quotes) > 0 {
		closedRecs = append(closedRecs, e.portfolio.ApplyPriceUpdates(quotes)...)
	}
	closedRecs = append(closedRecs, e.portfolio.Liquidate()...)
	closedRecs = append(closedRecs, e.portfolio.CheckProgressiveExits()...)
	e.portfolio.RecordCapital()

	state = e.portfolio.CapitalState()
	openCopies = e.portfolio.OpenPositions()
	snap = e.portfolio.Snapshot()
	e.portfolio.Unlock()

	// 6. Persistencia y housekeeping, fuera del lock.
	point := domain.CapitalPoint{Time: time.Now().UTC(), Capital: state.CapitalTotal}
	e.persist(ctx, state, openCopies, closedRecs, &point)

	if purged := e.trends.PurgeStale(e.cfg.HistoryTTL); purged > 0 {
		slog.Info("purged stale trend histories", "markets", purged)
	}

	e.publishMetrics(state, len(openCopies), closedRecs)
	e.lastScan.Store(time.Now().UnixNano())

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, snap); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	metrics.ScanCycles.Inc()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	slog.Info("scan cycle complete",
		"candidates", len(candidates),
		"confirmed", len(confirmed),
		"open", len(openCopies),
		"closed", len(closedRecs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// verifyCandidates cotiza los primeros MaxVerify candidatos contra el CLOB,
// alimenta el trend tracker y aplica el entry gate: YES dentro de la banda
// estrecha Y (uptrend estricto O ≥ TrendMinObservations observaciones).
func (e *Engine) verifyCandidates(ctx context.Context, candidates []domain.Candidate) []domain.Candidate {
	arb := NewArbiter(e.books, e.markets)

	limit := len(candidates)
	if limit > e.cfg.MaxVerify {
		limit = e.cfg.MaxVerify
	}

	var confirmed []domain.Candidate
	for _, c := range candidates[:limit] {
		if ctx.Err() != nil {
			return confirmed
		}

		q, ok := arb.QuotePrimary(ctx, c.YesTokenID)
		if !ok {
			continue
		}

		// Registrar aunque esté fuera de la banda de entrada: el trend se
		// construye mientras el mercado se acerca desde abajo.
		e.trends.Record(c.ConditionID, q.Yes)

		obs := e.trends.ObservationCount(c.ConditionID)
		hasTrend := e.trends.HasUptrend(c.ConditionID)

		inBand := q.Yes >= e.cfg.EntryYesMin && q.Yes <= e.cfg.EntryYesMax
		if !inBand {
			continue
		}

		if hasTrend || obs >= e.cfg.TrendMinObservations {
			entryType := "stable"
			if hasTrend {
				entryType = "uptrend"
			}
			slog.Info("entry confirmed",
				"type", entryType,
				"question", truncate(c.Question, 35),
				"yes_cents", q.Yes*100,
				"observations", obs,
			)
			c.YesPrice = q.Yes
			c.NoPrice = q.No
			confirmed = append(confirmed, c)
		} else {
			slog.Info("entry pending",
				"question", truncate(c.Question, 35),
				"yes_cents", q.Yes*100,
				"observations", obs,
				"needed", e.cfg.TrendMinObservations,
			)
		}
	}
	return confirmed
}

// quoteOpenPositions copia los targets bajo un lock corto y cotiza cada
// posición con un Arbiter fresco, sin el lock tomado.
func (e *Engine) quoteOpenPositions(ctx context.Context) map[string]domain.Quote {
	e.portfolio.Lock()
	targets := e.portfolio.QuoteTargets()
	e.portfolio.Unlock()

	if len(targets) == 0 {
		return nil
	}

	arb := NewArbiter(e.books, e.markets)
	quotes := make(map[string]domain.Quote, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		if q, ok := arb.Quote(ctx, t.YesTokenID, t.Slug); ok {
			quotes[t.ConditionID] = q
		}
	}
	return quotes
}

// ── Refresh sweep ──────────────────────────────────────────────────────────

// RefreshOnce ejecuta un sweep del price worker: re-cotiza las posiciones
// abiertas y aplica resoluciones/stop loss. Las salidas progresivas quedan
// para el ciclo de scan.
func (e *Engine) RefreshOnce(ctx context.Context) {
	quotes := e.quoteOpenPositions(ctx)
	e.lastRefresh.Store(time.Now().UnixNano())
	if len(quotes) == 0 {
		return
	}

	e.portfolio.Lock()
	closed := e.portfolio.ApplyPriceUpdates(quotes)
	state := e.portfolio.CapitalState()
	open := e.portfolio.OpenPositions()
	e.portfolio.Unlock()

	if len(closed) > 0 {
		e.persist(ctx, state, open, closed, nil)
	}
	e.publishMetrics(state, len(open), closed)
}

// ── Persistence ────────────────────────────────────────────────────────────

// persist escribe el estado del ledger tras una mutación. Los errores de
// storage se loguean y se siguen: la persistencia nunca tumba un sweep.
func (e *Engine) persist(ctx context.Context, state domain.CapitalState, open []domain.Position, closed []domain.ClosedPosition, point *domain.CapitalPoint) {
	if e.store == nil {
		return
	}

	if err := e.store.SaveState(ctx, state); err != nil {
		slog.Warn("storage: save state", "err", err)
	}
	for _, pos := range open {
		if err := e.store.UpsertOpenPosition(ctx, pos); err != nil {
			slog.Warn("storage: upsert position", "condition_id", pos.ConditionID, "err", err)
		}
	}
	for _, rec := range closed {
		if rec.Status.IsTerminal() {
			if err := e.store.DeleteOpenPosition(ctx, rec.ConditionID); err != nil {
				slog.Warn("storage: delete position", "condition_id", rec.ConditionID, "err", err)
			}
		}
		if err := e.store.AppendClosedPosition(ctx, rec); err != nil {
			slog.Warn("storage: append closed", "condition_id", rec.ConditionID, "err", err)
		}
	}
	if point != nil {
		if err := e.store.AppendCapitalPoint(ctx, *point); err != nil {
			slog.Warn("storage: append capital point", "err", err)
		}
	}
}

func (e *Engine) publishMetrics(state domain.CapitalState, open int, closed []domain.ClosedPosition) {
	metrics.OpenPositions.Set(float64(open))
	metrics.CapitalTotal.Set(state.CapitalTotal)
	metrics.CapitalAvailable.Set(state.CapitalAvailable)
	metrics.TrackedMarkets.Set(float64(len(e.trends.SnapshotAll())))
	for _, rec := range closed {
		metrics.PositionsClosed.WithLabelValues(string(rec.Status)).Inc()
	}
}
