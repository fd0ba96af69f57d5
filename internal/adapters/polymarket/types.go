package polymarket

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// bookResponse es la respuesta de GET /book para un token.
type bookResponse struct {
	AssetID        string         `json:"asset_id"`
	Bids           []bookEntryRaw `json:"bids"`
	Asks           []bookEntryRaw `json:"asks"`
	LastTradePrice string         `json:"last_trade_price"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaEventsResponse es la respuesta de GET /events.
type gammaEventsResponse []gammaEvent

// gammaEvent es un evento de Gamma con sus mercados (uno por umbral de
// temperatura en los eventos meteorológicos).
type gammaEvent struct {
	Slug    string        `json:"slug"`
	Markets []gammaMarket `json:"markets"`
}

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado de Gamma. Varios campos numéricos y listas
// llegan como strings JSON; el parseo vive en mapping.go.
type gammaMarket struct {
	ConditionID   string `json:"conditionId"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	EndDate       string `json:"endDate"`
	Volume        string `json:"volume"`
	OutcomePrices string `json:"outcomePrices"` // JSON array de strings: [yes, no]
	ClobTokenIDs  string `json:"clobTokenIds"`  // JSON array de strings: [yes, no]
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
}
