package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// exitFraction es la fracción de tokens/capital que se realiza en cada
// salida parcial.
const exitFraction = 0.50

// CheckProgressiveExits evalúa cada posición abierta para su siguiente
// tramo de salida, como mucho un tramo por llamada:
//
//	stage 0 → 1: vender 50% cuando YES ≥ Exit1
//	stage 1 → 2: vender 50% del resto cuando YES ≥ Exit2
//	stage 2 → cierre total como WON cuando YES ≥ Exit3
//
// Reaplicar sin cruzar un umbral nuevo no cambia nada. Se llama una vez por
// ciclo de scan, después de resolver/stop-loss, de modo que una posición
// terminada nunca se escalona en el mismo ciclo. Devuelve los registros de
// historial generados (parciales y cierres). Requiere el lock.
func (p *Portfolio) CheckProgressiveExits() []domain.ClosedPosition {
	var records []domain.ClosedPosition

	for cid, pos := range p.positions {
		switch {
		case pos.ExitStage == 0 && pos.CurrentYes >= p.cfg.Exit1:
			records = append(records, p.partialExit(pos, 1, domain.StatusPartial1))

		case pos.ExitStage == 1 && pos.CurrentYes >= p.cfg.Exit2:
			records = append(records, p.partialExit(pos, 2, domain.StatusPartial2))

		case pos.ExitStage == 2 && pos.CurrentYes >= p.cfg.Exit3:
			pnl := pos.Tokens*pos.CurrentYes - pos.Allocated
			resolution := fmt.Sprintf("Tramo 3: cierre total @ YES=%.1f¢ (umbral %.0f¢)",
				pos.CurrentYes*100, p.cfg.Exit3*100)
			if rec, ok := p.closePosition(cid, domain.StatusWon, pnl, resolution); ok {
				records = append(records, rec)
			}
		}
	}
	return records
}

// partialExit realiza exitFraction de la posición al precio actual. Tokens,
// capital asignado y max_gain se reducen en la misma proporción, nunca por
// separado, para conservar tokens·entrada == allocated. La posición sigue
// abierta; el parcial queda como registro de historial.
func (p *Portfolio) partialExit(pos *domain.Position, newStage int, label domain.Status) domain.ClosedPosition {
	tokensSold := pos.Tokens * exitFraction
	saleValue := tokensSold * pos.CurrentYes
	costFraction := pos.Allocated * exitFraction
	realizedPnL := saleValue - costFraction

	pos.Tokens *= 1 - exitFraction
	pos.Allocated *= 1 - exitFraction
	pos.MaxGain *= 1 - exitFraction
	pos.ExitStage = newStage

	p.capitalAvailable += costFraction + realizedPnL
	p.capitalTotal += realizedPnL

	rec := domain.ClosedPosition{
		ID:          uuid.New().String(),
		ConditionID: pos.ConditionID,
		City:        pos.City,
		Question:    pos.Question,
		EntryYes:    pos.EntryYes,
		Allocated:   costFraction,
		PnL:         realizedPnL,
		Status:      label,
		Resolution: fmt.Sprintf("Salida %s: %d%% tokens @ YES=%.1f¢",
			label, int(exitFraction*100), pos.CurrentYes*100),
		OpenedAt: pos.OpenedAt,
		ClosedAt: time.Now().UTC(),
	}
	p.closed = append(p.closed, rec)
	return rec
}
