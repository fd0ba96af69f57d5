package domain

import "time"

// Status es el estado de una posición dentro de la máquina de estados
// del portfolio.
type Status string

const (
	// StatusOpen — posición activa, exit stage 0-2.
	StatusOpen Status = "OPEN"
	// StatusWon — YES resolvió ≥ 0.99: el evento ocurrió.
	StatusWon Status = "WON"
	// StatusLost — NO resolvió ≥ 0.99: el evento no ocurrió, pérdida total.
	StatusLost Status = "LOST"
	// StatusStopped — stop loss: YES cayó el umbral configurado desde la entrada.
	StatusStopped Status = "STOPPED"
	// StatusLiquidated — cierre forzado: entrada fuera del rango configurado.
	StatusLiquidated Status = "LIQUIDATED"
	// StatusPartial1 y StatusPartial2 son marcadores de historial para las
	// salidas parciales. La posición sigue abierta cuando se registran.
	StatusPartial1 Status = "PARTIAL_1"
	StatusPartial2 Status = "PARTIAL_2"
)

// IsTerminal devuelve true si el status saca la posición del set abierto.
// Los parciales dejan la posición abierta.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusStopped, StatusLiquidated:
		return true
	}
	return false
}

// IsResolutionOutcome devuelve true si el status cuenta para las estadísticas
// de win/loss. Las salidas parciales y las liquidaciones no son resultados
// de resolución del mercado.
func (s Status) IsResolutionOutcome() bool {
	switch s {
	case StatusPartial1, StatusPartial2, StatusLiquidated:
		return false
	}
	return true
}

// Position es una apuesta abierta (o histórica) sobre el lado YES de un
// mercado binario.
type Position struct {
	ConditionID string    `json:"condition_id"`
	City        string    `json:"city"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug"`
	YesTokenID  string    `json:"yes_token_id"`
	NoTokenID   string    `json:"no_token_id"`
	EndDate     time.Time `json:"end_date"`
	Volume      float64   `json:"volume"`

	EntryYes   float64   `json:"entry_yes"`
	CurrentYes float64   `json:"current_yes"`
	Allocated  float64   `json:"allocated"` // capital en riesgo actualmente
	Tokens     float64   `json:"tokens"`    // allocated / entry_yes al abrir, reducido en parciales
	MaxGain    float64   `json:"max_gain"`  // ganancia si YES llega a 1.00
	ExitStage  int       `json:"exit_stage"`
	Status     Status    `json:"status"`
	OpenedAt   time.Time `json:"opened_at"`
}

// FloatingPnL es el PnL no realizado al precio actual.
func (p Position) FloatingPnL() float64 {
	return p.Tokens*p.CurrentYes - p.Allocated
}

// ClosedPosition es un registro inmutable del historial: un cierre terminal
// o una salida parcial. Una posición genera un registro por cada parcial
// y exactamente uno por su cierre definitivo.
type ClosedPosition struct {
	ID          string    `json:"id"` // uuid del registro
	ConditionID string    `json:"condition_id"`
	City        string    `json:"city"`
	Question    string    `json:"question"`
	EntryYes    float64   `json:"entry_yes"`
	Allocated   float64   `json:"allocated"` // capital realizado en este registro
	PnL         float64   `json:"pnl"`
	Status      Status    `json:"status"`
	Resolution  string    `json:"resolution"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

// CapitalPoint es un punto de la curva de capital, uno por ciclo de scan.
type CapitalPoint struct {
	Time    time.Time `json:"time"`
	Capital float64   `json:"capital"`
}

// CapitalState son las cifras de capital que se persisten y se restauran
// entre reinicios.
type CapitalState struct {
	CapitalInitial   float64   `json:"capital_initial"`
	CapitalTotal     float64   `json:"capital_total"`
	CapitalAvailable float64   `json:"capital_available"`
	SessionStart     time.Time `json:"session_start"`
}
