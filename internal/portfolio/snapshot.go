package portfolio

import (
	"time"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// OpenPositionView es una posición abierta con su PnL flotante, para el
// snapshot de reporting.
type OpenPositionView struct {
	ConditionID string    `json:"condition_id"`
	Question    string    `json:"question"`
	City        string    `json:"city"`
	EntryYes    float64   `json:"entry_yes"`
	CurrentYes  float64   `json:"current_yes"`
	ExitStage   int       `json:"exit_stage"`
	Allocated   float64   `json:"allocated"`
	PnL         float64   `json:"pnl"` // flotante, no realizado
	OpenedAt    time.Time `json:"opened_at"`
	Status      domain.Status `json:"status"`
}

// Snapshot es la vista consistente del portfolio para reporting externo.
type Snapshot struct {
	CapitalInitial   float64 `json:"capital_initial"`
	CapitalTotal     float64 `json:"capital_total"`
	CapitalAvailable float64 `json:"capital_available"`
	PnL              float64 `json:"pnl"`
	ROI              float64 `json:"roi"` // porcentaje sobre capital inicial

	Won        int `json:"won"`
	Lost       int `json:"lost"`
	Stopped    int `json:"stopped"`
	Partial1   int `json:"partial1"`
	Partial2   int `json:"partial2"`
	Liquidated int `json:"liquidated"`

	OpenPositions   []OpenPositionView      `json:"open_positions"`
	ClosedPositions []domain.ClosedPosition `json:"closed_positions"`
	CapitalHistory  []domain.CapitalPoint   `json:"capital_history"`
	SessionStart    time.Time               `json:"session_start"`
	Insights        *Insights               `json:"insights"`
}

// Snapshot produce la vista de reporting: cifras de capital, posiciones
// abiertas con PnL flotante, historial de cierres, curva de capital y
// contadores por status. PARTIAL_1/PARTIAL_2/LIQUIDATED no cuentan como
// win/loss porque no son resultados de resolución. Requiere el lock.
func (p *Portfolio) Snapshot() Snapshot {
	pnl := p.capitalTotal - p.capitalInitial
	roi := 0.0
	if p.capitalInitial > 0 {
		roi = pnl / p.capitalInitial * 100
	}

	snap := Snapshot{
		CapitalInitial:   p.capitalInitial,
		CapitalTotal:     p.capitalTotal,
		CapitalAvailable: p.capitalAvailable,
		PnL:              pnl,
		ROI:              roi,
		SessionStart:     p.sessionStart,
		Insights:         p.Insights(),
	}

	for _, rec := range p.closed {
		switch rec.Status {
		case domain.StatusPartial1:
			snap.Partial1++
		case domain.StatusPartial2:
			snap.Partial2++
		case domain.StatusLiquidated:
			snap.Liquidated++
		default:
			if rec.PnL > 0 {
				snap.Won++
			} else {
				snap.Lost++
			}
			if rec.Status == domain.StatusStopped {
				snap.Stopped++
			}
		}
	}

	snap.OpenPositions = make([]OpenPositionView, 0, len(p.positions))
	for _, pos := range p.positions {
		snap.OpenPositions = append(snap.OpenPositions, OpenPositionView{
			ConditionID: pos.ConditionID,
			Question:    pos.Question,
			City:        pos.City,
			EntryYes:    pos.EntryYes,
			CurrentYes:  pos.CurrentYes,
			ExitStage:   pos.ExitStage,
			Allocated:   pos.Allocated,
			PnL:         pos.FloatingPnL(),
			OpenedAt:    pos.OpenedAt,
			Status:      pos.Status,
		})
	}

	snap.ClosedPositions = append([]domain.ClosedPosition(nil), p.closed...)
	snap.CapitalHistory = append([]domain.CapitalPoint(nil), p.capitalHistory...)
	return snap
}
