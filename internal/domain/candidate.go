package domain

import "time"

// Candidate es un mercado candidato devuelto por el discovery, ya filtrado
// a la banda ancha (YES 0.10–0.40). El entry gate del engine aplica la banda
// estrecha de momentum.
type Candidate struct {
	ConditionID string
	City        string
	Question    string
	YesPrice    float64
	NoPrice     float64
	Volume      float64
	EndDate     time.Time
	Slug        string
	YesTokenID  string
	NoTokenID   string
}

// Quote es un par de precios YES/NO devuelto por una fuente de precios.
// Yes + No suman idealmente 1.
type Quote struct {
	Yes    float64
	No     float64
	Source string // "clob" | "gamma"
}
