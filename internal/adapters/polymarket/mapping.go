package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// parseOutcomePrices extrae el par (yes, no) del campo outcomePrices de
// Gamma, que llega como JSON array de strings dentro de un string:
// "[\"0.25\", \"0.75\"]".
//
// Fixups heredados del comportamiento real de la API:
//   - precios negativos → inválido
//   - yes == 0 con no ≥ 0.99 → yes = 0.001 (y simétrico): Gamma a veces
//     colapsa a 0 el lado perdedor antes de la resolución formal.
func parseOutcomePrices(raw string) (yes, no float64, ok bool) {
	if raw == "" {
		return 0, 0, false
	}

	var prices []string
	if err := json.Unmarshal([]byte(raw), &prices); err != nil || len(prices) < 2 {
		return 0, 0, false
	}

	yes, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || yes < 0 {
		return 0, 0, false
	}
	no, err = strconv.ParseFloat(prices[1], 64)
	if err != nil || no < 0 {
		return 0, 0, false
	}

	if yes == 0 && no >= 0.99 {
		yes = 0.001
	}
	if no == 0 && yes >= 0.99 {
		no = 0.001
	}
	return yes, no, true
}

// parseTokenIDs extrae [yes, no] del campo clobTokenIds de Gamma (mismo
// formato string-de-array que outcomePrices).
func parseTokenIDs(raw string) (yesID, noID string) {
	if raw == "" {
		return "", ""
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return "", ""
	}
	if len(ids) > 0 {
		yesID = ids[0]
	}
	if len(ids) > 1 {
		noID = ids[1]
	}
	return yesID, noID
}

// parseEndDate parsea el endDate de Gamma (RFC 3339, a veces vacío).
func parseEndDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseVolume parsea el volumen, que Gamma devuelve como string.
func parseVolume(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// mapCandidate convierte un gammaMarket a domain.Candidate.
func mapCandidate(gm gammaMarket, city string, yes, no float64) domain.Candidate {
	yesID, noID := parseTokenIDs(gm.ClobTokenIDs)
	return domain.Candidate{
		ConditionID: gm.ConditionID,
		City:        city,
		Question:    gm.Question,
		YesPrice:    yes,
		NoPrice:     no,
		Volume:      parseVolume(gm.Volume),
		EndDate:     parseEndDate(gm.EndDate),
		Slug:        gm.Slug,
		YesTokenID:  yesID,
		NoTokenID:   noID,
	}
}
