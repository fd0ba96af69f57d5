// Package portfolio es el ledger del bot: el único dueño de la contabilidad
// de capital y de la máquina de estados de las posiciones.
//
// Exit stages por posición:
//
//	0 = abierta
//	1 = primer 50% vendido en Exit1 (YES ≥ 0.31)
//	2 = segundo 50% vendido en Exit2 (YES ≥ 0.37)
//	cierre total como WON en Exit3 (YES ≥ 0.43)
//
// Stop loss: caída fija de StopLossDrop (5¢) desde entry_yes.
// WON: YES ≥ 0.99 (el evento ocurrió). LOST: NO ≥ 0.99 (no ocurrió).
//
// Disciplina de locking: los métodos de mutación NO toman el lock; el caller
// debe mantener Lock() durante toda la secuencia leer-decidir-mutar. Las
// llamadas de red nunca se hacen con el lock tomado.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// resolutionPrice es el precio al que un lado se considera resuelto.
const resolutionPrice = 0.99

// minStake es el capital mínimo para abrir una posición.
const minStake = 1.0

// Config contiene los umbrales de la máquina de estados.
type Config struct {
	MaxPositions      int
	StopLossDrop      float64
	Exit1             float64 // vender 50%
	Exit2             float64 // vender 50% del resto
	Exit3             float64 // cerrar todo
	MaxRegionExposure float64 // fracción de capital_total por región
	EntryYesMin       float64 // banda de entrada, para liquidaciones
	EntryYesMax       float64
}

// DefaultConfig devuelve los umbrales de producción. Exit1 < Exit2 < Exit3
// es contrato de configuración: la máquina de estados no lo valida.
func DefaultConfig() Config {
	return Config{
		MaxPositions:      20,
		StopLossDrop:      0.05,
		Exit1:             0.31,
		Exit2:             0.37,
		Exit3:             0.43,
		MaxRegionExposure: 0.25,
		EntryYesMin:       0.22,
		EntryYesMax:       0.27,
	}
}

// Portfolio mantiene el capital y las posiciones. Es el único estado
// compartido entre el scan worker y el price worker.
type Portfolio struct {
	mu  sync.Mutex
	cfg Config

	capitalInitial   float64
	capitalTotal     float64
	capitalAvailable float64
	sessionStart     time.Time

	positions      map[string]*domain.Position // por condition_id
	closed         []domain.ClosedPosition     // append-only
	capitalHistory []domain.CapitalPoint       // append-only, un punto por ciclo
}

// New crea un Portfolio con el capital inicial dado.
func New(cfg Config, initialCapital float64) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		cfg:              cfg,
		capitalInitial:   initialCapital,
		capitalTotal:     initialCapital,
		capitalAvailable: initialCapital,
		sessionStart:     now,
		positions:        make(map[string]*domain.Position),
		capitalHistory: []domain.CapitalPoint{
			{Time: now, Capital: initialCapital},
		},
	}
}

// Rehydrate reconstruye un Portfolio desde el estado persistido.
func Rehydrate(cfg Config, state domain.CapitalState, open []domain.Position, closed []domain.ClosedPosition, history []domain.CapitalPoint) *Portfolio {
	p := New(cfg, state.CapitalInitial)
	p.capitalTotal = state.CapitalTotal
	p.capitalAvailable = state.CapitalAvailable
	if !state.SessionStart.IsZero() {
		p.sessionStart = state.SessionStart
	}
	for i := range open {
		pos := open[i]
		p.positions[pos.ConditionID] = &pos
	}
	p.closed = append([]domain.ClosedPosition(nil), closed...)
	if len(history) > 0 {
		p.capitalHistory = append([]domain.CapitalPoint(nil), history...)
	}
	return p
}

// Lock toma el lock exclusivo del portfolio.
func (p *Portfolio) Lock() { p.mu.Lock() }

// Unlock libera el lock exclusivo del portfolio.
func (p *Portfolio) Unlock() { p.mu.Unlock() }

// CanOpen devuelve true si hay hueco para una posición más y queda capital
// mínimo disponible. Requiere el lock.
func (p *Portfolio) CanOpen() bool {
	return len(p.positions) < p.cfg.MaxPositions && p.capitalAvailable >= minStake
}

// CapitalAvailable devuelve el capital no asignado. Requiere el lock.
func (p *Portfolio) CapitalAvailable() float64 { return p.capitalAvailable }

// OpenCount devuelve el número de posiciones abiertas. Requiere el lock.
func (p *Portfolio) OpenCount() int { return len(p.positions) }

// RegionAllocated suma el capital asignado a posiciones abiertas de una
// región. Derivado, no almacenado. Requiere el lock.
func (p *Portfolio) RegionAllocated(region string) float64 {
	total := 0.0
	for _, pos := range p.positions {
		if domain.RegionFor(pos.City) == region {
			total += pos.Allocated
		}
	}
	return total
}

// RegionHasCapacity es el control de admisión por región: true si el capital
// ya asignado a la región está estrictamente por debajo del cap. Una posición
// grande puede igualmente dejar la región por encima del cap: el check es
// admisión, no techo duro. Requiere el lock.
func (p *Portfolio) RegionHasCapacity(city string) bool {
	region := domain.RegionFor(city)
	return p.RegionAllocated(region) < p.capitalTotal*p.cfg.MaxRegionExposure
}

// Open abre una posición stage 0 sobre el candidato. Mueve amount de
// capital_available a la posición; capital_total no cambia (nada realizado).
// Requiere el lock.
func (p *Portfolio) Open(c domain.Candidate, amount float64) *domain.Position {
	tokens := amount / c.YesPrice
	pos := &domain.Position{
		ConditionID: c.ConditionID,
		City:        c.City,
		Question:    c.Question,
		Slug:        c.Slug,
		YesTokenID:  c.YesTokenID,
		NoTokenID:   c.NoTokenID,
		EndDate:     c.EndDate,
		Volume:      c.Volume,
		EntryYes:    c.YesPrice,
		CurrentYes:  c.YesPrice,
		Allocated:   amount,
		Tokens:      tokens,
		MaxGain:     tokens*1.0 - amount, // si YES llega a 1.00
		ExitStage:   0,
		Status:      domain.StatusOpen,
		OpenedAt:    time.Now().UTC(),
	}
	p.positions[c.ConditionID] = pos
	p.capitalAvailable -= amount
	return pos
}

// ApplyPriceUpdates actualiza current_yes de cada posición abierta presente
// en el mapa y evalúa resolución y stop loss, en este orden de prioridad:
//
//  1. YES ≥ 0.99 → WON (pnl = tokens·yes − allocated)
//  2. NO ≥ 0.99 → LOST (pérdida total)
//  3. caída ≥ StopLossDrop desde la entrada → STOPPED (pérdida acotada)
//
// Un mercado resuelto nunca se clasifica como stop loss. Los mercados del
// mapa que ya no están abiertos se ignoran (el otro worker pudo cerrarlos).
// Devuelve los registros de cierre generados. Requiere el lock.
func (p *Portfolio) ApplyPriceUpdates(quotes map[string]domain.Quote) []domain.ClosedPosition {
	type pending struct {
		cid        string
		status     domain.Status
		pnl        float64
		resolution string
	}
	var toClose []pending

	for cid, q := range quotes {
		pos, ok := p.positions[cid]
		if !ok {
			continue
		}
		pos.CurrentYes = q.Yes

		switch {
		case q.Yes >= resolutionPrice:
			pnl := pos.Tokens*q.Yes - pos.Allocated
			toClose = append(toClose, pending{
				cid: cid, status: domain.StatusWon, pnl: pnl,
				resolution: fmt.Sprintf("YES resolvió: evento ocurrió (YES=%.1f¢)", q.Yes*100),
			})

		case q.No >= resolutionPrice:
			toClose = append(toClose, pending{
				cid: cid, status: domain.StatusLost, pnl: -pos.Allocated,
				resolution: fmt.Sprintf("NO resolvió: evento no ocurrió (NO=%.1f¢)", q.No*100),
			})

		default:
			drop := q.Yes - pos.EntryYes
			if drop <= -p.cfg.StopLossDrop {
				pnl := pos.Tokens*q.Yes - pos.Allocated
				toClose = append(toClose, pending{
					cid: cid, status: domain.StatusStopped, pnl: pnl,
					resolution: fmt.Sprintf("Stop loss @ YES=%.1f¢ (entrada %.1f¢, caída %.1f¢)",
						q.Yes*100, pos.EntryYes*100, -drop*100),
				})
			}
		}
	}

	var records []domain.ClosedPosition
	for _, c := range toClose {
		if rec, ok := p.closePosition(c.cid, c.status, c.pnl, c.resolution); ok {
			records = append(records, rec)
		}
	}
	return records
}

// closePosition cierra una posición exactamente una vez: devuelve el capital
// asignado más el pnl a capital_available, suma el pnl a capital_total,
// añade el registro inmutable al historial y la saca del set abierto.
// Si la posición ya no existe es un no-op (el otro worker la cerró).
func (p *Portfolio) closePosition(cid string, status domain.Status, pnl float64, resolution string) (domain.ClosedPosition, bool) {
	pos, ok := p.positions[cid]
	if !ok {
		return domain.ClosedPosition{}, false
	}

	p.capitalAvailable += pos.Allocated + pnl
	p.capitalTotal += pnl

	rec := domain.ClosedPosition{
		ID:          uuid.New().String(),
		ConditionID: cid,
		City:        pos.City,
		Question:    pos.Question,
		EntryYes:    pos.EntryYes,
		Allocated:   pos.Allocated,
		PnL:         pnl,
		Status:      status,
		Resolution:  resolution,
		OpenedAt:    pos.OpenedAt,
		ClosedAt:    time.Now().UTC(),
	}
	p.closed = append(p.closed, rec)
	delete(p.positions, cid)
	return rec, true
}

// Liquidate fuerza el cierre de las posiciones abiertas cuya entrada quedó
// fuera de la banda configurada (pasa cuando los límites cambian entre
// reinicios). PnL mark-to-market al precio actual. Requiere el lock.
func (p *Portfolio) Liquidate() []domain.ClosedPosition {
	var records []domain.ClosedPosition
	for cid, pos := range p.positions {
		if pos.EntryYes >= p.cfg.EntryYesMin && pos.EntryYes <= p.cfg.EntryYesMax {
			continue
		}
		pnl := pos.Tokens*pos.CurrentYes - pos.Allocated
		resolution := fmt.Sprintf("Auto-liquidación: YES entrada %.1f¢ fuera del rango (%.0f–%.0f¢)",
			pos.EntryYes*100, p.cfg.EntryYesMin*100, p.cfg.EntryYesMax*100)
		if rec, ok := p.closePosition(cid, domain.StatusLiquidated, pnl, resolution); ok {
			records = append(records, rec)
		}
	}
	return records
}

// RecordCapital añade un punto a la curva de capital. Requiere el lock.
func (p *Portfolio) RecordCapital() {
	p.capitalHistory = append(p.capitalHistory, domain.CapitalPoint{
		Time:    time.Now().UTC(),
		Capital: p.capitalTotal,
	})
}

// KnownConditionIDs devuelve los IDs de mercados ya abiertos o cerrados,
// para que el discovery no los vuelva a proponer. Requiere el lock.
func (p *Portfolio) KnownConditionIDs() map[string]struct{} {
	known := make(map[string]struct{}, len(p.positions)+len(p.closed))
	for cid := range p.positions {
		known[cid] = struct{}{}
	}
	for _, rec := range p.closed {
		known[rec.ConditionID] = struct{}{}
	}
	return known
}

// QuoteTarget identifica una posición abierta ante las fuentes de precios.
type QuoteTarget struct {
	ConditionID string
	YesTokenID  string
	Slug        string
}

// QuoteTargets devuelve los targets de las posiciones abiertas. El caller
// toma el lock solo para copiar esta lista y lo suelta antes de cualquier
// llamada de red. Requiere el lock.
func (p *Portfolio) QuoteTargets() []QuoteTarget {
	targets := make([]QuoteTarget, 0, len(p.positions))
	for cid, pos := range p.positions {
		targets = append(targets, QuoteTarget{
			ConditionID: cid,
			YesTokenID:  pos.YesTokenID,
			Slug:        pos.Slug,
		})
	}
	return targets
}

// OpenPositions devuelve copias de las posiciones abiertas. Requiere el lock.
func (p *Portfolio) OpenPositions() []domain.Position {
	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}

// CapitalState devuelve las cifras de capital para persistencia.
// Requiere el lock.
func (p *Portfolio) CapitalState() domain.CapitalState {
	return domain.CapitalState{
		CapitalInitial:   p.capitalInitial,
		CapitalTotal:     p.capitalTotal,
		CapitalAvailable: p.capitalAvailable,
		SessionStart:     p.sessionStart,
	}
}
