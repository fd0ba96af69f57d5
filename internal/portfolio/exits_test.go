package portfolio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/portfolio"
)

func setPrice(p *portfolio.Portfolio, cid string, yes float64) {
	p.ApplyPriceUpdates(map[string]domain.Quote{cid: {Yes: yes, No: 1 - yes}})
}

func TestPartialExitProportionality(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	p.Open(candidate("m1", "nyc", 0.25), 10) // 40 tokens, allocated 10

	setPrice(p, "m1", 0.31)
	records := p.CheckProgressiveExits()

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, domain.StatusPartial1, rec.Status)

	// pnl = tokens_vendidos·precio − allocated_vendido = 20·0.31 − 5 = 1.2
	assert.InDelta(t, 20*0.31-5, rec.PnL, 1e-9)
	assert.InDelta(t, 5.0, rec.Allocated, 1e-9)

	snap := p.Snapshot()
	require.Len(t, snap.OpenPositions, 1)
	pos := snap.OpenPositions[0]
	assert.Equal(t, 1, pos.ExitStage)
	assert.InDelta(t, 5.0, pos.Allocated, 1e-9, "mitad exacta del allocated")
	assert.InDelta(t, 96.2, snap.CapitalAvailable, 1e-9) // 90 + 5 + 1.2
	assert.InDelta(t, 101.2, snap.CapitalTotal, 1e-9)
	checkConservation(t, p)
}

func TestExitStagingIsMonotone(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	p.Open(candidate("m1", "nyc", 0.25), 10)

	// El precio salta por encima de Exit2 directamente: solo avanza un tramo
	// por evaluación, nunca 0 → 2 en un ciclo.
	setPrice(p, "m1", 0.40)
	records := p.CheckProgressiveExits()

	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusPartial1, records[0].Status)

	snap := p.Snapshot()
	require.Len(t, snap.OpenPositions, 1)
	assert.Equal(t, 1, snap.OpenPositions[0].ExitStage)

	// El siguiente ciclo avanza al tramo 2.
	records = p.CheckProgressiveExits()
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusPartial2, records[0].Status)
}

func TestExitsIdempotentWithoutNewThreshold(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	p.Open(candidate("m1", "nyc", 0.25), 10)

	setPrice(p, "m1", 0.32) // cruza Exit1, no Exit2
	require.Len(t, p.CheckProgressiveExits(), 1)

	before := p.Snapshot()
	assert.Empty(t, p.CheckProgressiveExits(), "sin umbral nuevo no pasa nada")
	after := p.Snapshot()

	assert.Equal(t, before.OpenPositions[0].ExitStage, after.OpenPositions[0].ExitStage)
	assert.InDelta(t, before.OpenPositions[0].Allocated, after.OpenPositions[0].Allocated, 1e-12)
	assert.InDelta(t, before.CapitalTotal, after.CapitalTotal, 1e-12)
}

func TestThirdStageClosesAsWon(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	p.Open(candidate("m1", "nyc", 0.25), 10)

	setPrice(p, "m1", 0.31)
	p.CheckProgressiveExits() // stage 1
	setPrice(p, "m1", 0.37)
	p.CheckProgressiveExits() // stage 2
	setPrice(p, "m1", 0.43)
	records := p.CheckProgressiveExits()

	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusWon, records[0].Status)

	snap := p.Snapshot()
	assert.Empty(t, snap.OpenPositions)
	// historial: PARTIAL_1, PARTIAL_2 y el cierre WON
	assert.Len(t, snap.ClosedPositions, 3)
	checkConservation(t, p)
}

// TestMomentumRunFullLifecycle reproduce el ciclo de vida completo:
// apertura a 25¢, parcial a 31¢ y resolución WON del resto.
func TestMomentumRunFullLifecycle(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)

	p.Open(candidate("m1", "nyc", 0.25), 10)
	snap := p.Snapshot()
	assert.InDelta(t, 90.0, snap.CapitalAvailable, 1e-9)
	assert.InDelta(t, 100.0, snap.CapitalTotal, 1e-9)

	// YES 0.31 → parcial: quedan 20 tokens, allocated 5,
	// available = 90 + 5 + (20·0.31 − 5) = 96.2
	setPrice(p, "m1", 0.31)
	p.CheckProgressiveExits()
	snap = p.Snapshot()
	assert.InDelta(t, 96.2, snap.CapitalAvailable, 1e-9)
	assert.InDelta(t, 101.2, snap.CapitalTotal, 1e-9)

	// YES 0.99 → WON: el resto se realiza, 20·0.99 − 5 = 14.8
	closed := p.ApplyPriceUpdates(map[string]domain.Quote{"m1": {Yes: 0.99, No: 0.01}})
	require.Len(t, closed, 1)
	assert.Equal(t, domain.StatusWon, closed[0].Status)
	assert.InDelta(t, 14.8, closed[0].PnL, 1e-9)

	snap = p.Snapshot()
	assert.Empty(t, snap.OpenPositions)
	assert.InDelta(t, 116.0, snap.CapitalTotal, 1e-9) // 100 + 1.2 + 14.8
	assert.InDelta(t, 116.0, snap.CapitalAvailable, 1e-9)

	// la posición aparece exactamente una vez como cierre terminal
	terminal := 0
	for _, rec := range snap.ClosedPositions {
		if rec.ConditionID == "m1" && rec.Status.IsResolutionOutcome() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
	checkConservation(t, p)
}
