package portfolio_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/portfolio"
)

// closeAs abre y cierra una posición en un solo paso para poblar historial.
func closeAs(p *portfolio.Portfolio, cid, city string, won bool) {
	p.Open(candidate(cid, city, 0.25), 2)
	q := domain.Quote{Yes: 0.99, No: 0.01}
	if !won {
		q = domain.Quote{Yes: 0.005, No: 0.995}
	}
	p.ApplyPriceUpdates(map[string]domain.Quote{cid: q})
}

func TestInsightsNotEnoughData(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	for i := 0; i < 4; i++ {
		closeAs(p, fmt.Sprintf("m%d", i), "nyc", true)
	}
	assert.Nil(t, p.Insights(), "menos de 5 cierres terminales")
}

func TestInsightsPartialsDoNotCount(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 100)
	for i := 0; i < 4; i++ {
		closeAs(p, fmt.Sprintf("m%d", i), "nyc", true)
	}
	// un parcial añade un registro al historial pero no es cierre terminal
	p.Open(candidate("partial", "london", 0.25), 2)
	p.ApplyPriceUpdates(map[string]domain.Quote{"partial": {Yes: 0.31, No: 0.69}})
	p.CheckProgressiveExits()

	assert.Nil(t, p.Insights())
}

func TestInsightsBuckets(t *testing.T) {
	p := portfolio.New(portfolio.DefaultConfig(), 1000)

	// northeast: 3 trades, 2 ganados
	closeAs(p, "ne1", "nyc", true)
	closeAs(p, "ne2", "boston", true)
	closeAs(p, "ne3", "nyc", false)
	// europe: 2 trades, 0 ganados
	closeAs(p, "eu1", "london", false)
	closeAs(p, "eu2", "paris", false)
	// asia: 1 trade, bucket descartado por pocos datos
	closeAs(p, "as1", "seoul", true)

	insights := p.Insights()
	require.NotNil(t, insights)

	assert.Equal(t, 6, insights.TotalTrades)
	assert.InDelta(t, 0.5, insights.OverallWinRate, 1e-9)

	require.Len(t, insights.ByRegion, 2, "asia no llega al mínimo de trades")
	assert.Equal(t, "northeast", insights.ByRegion[0].Region)
	assert.InDelta(t, 2.0/3.0, insights.ByRegion[0].WinRate, 1e-9)
	assert.Equal(t, 3, insights.ByRegion[0].Trades)
	assert.Equal(t, "europe", insights.ByRegion[1].Region)
	assert.InDelta(t, 0.0, insights.ByRegion[1].WinRate, 1e-9)

	// todas las entradas son de la misma hora (test rápido): un solo bucket
	require.Len(t, insights.ByHour, 1)
	assert.Equal(t, 6, insights.ByHour[0].Trades)
}
