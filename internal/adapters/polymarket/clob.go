package polymarket

// clob.go — fuente primaria de precios: el order book del CLOB.
//
// El precio YES es el best ASK (lo que cuesta comprar YES ahora). Sin asks,
// el best BID; sin book, el último trade. Cualquier fallo devuelve ok=false;
// nunca un error que escape del adapter.

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/metrics"
)

const bookPath = "/book"

// QuoteByToken obtiene el precio YES en tiempo real del order book.
// Implementa ports.TokenQuoter.
func (c *Client) QuoteByToken(ctx context.Context, tokenID string) (domain.Quote, bool) {
	if tokenID == "" {
		return domain.Quote{}, false
	}

	url := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, tokenID)

	var book bookResponse
	if err := c.get(ctx, c.clobLimiter, clobTimeout, url, &book); err != nil {
		slog.Debug("clob book fetch failed", "token", shorten(tokenID), "err", err)
		metrics.QuoteFailures.WithLabelValues("clob").Inc()
		return domain.Quote{}, false
	}

	yes, ok := yesFromBook(book)
	if !ok {
		metrics.QuoteFailures.WithLabelValues("clob").Inc()
		return domain.Quote{}, false
	}

	return domain.Quote{Yes: yes, No: 1 - yes, Source: "clob"}, true
}

// yesFromBook extrae el precio YES de un book: best ask → best bid → last
// trade. Precios fuera de (0,1) invalidan el quote.
func yesFromBook(book bookResponse) (float64, bool) {
	var yes float64
	found := false

	if len(book.Asks) > 0 {
		yes = bestPrice(book.Asks, func(p, best float64) bool { return p < best })
		found = true
	} else if len(book.Bids) > 0 {
		yes = bestPrice(book.Bids, func(p, best float64) bool { return p > best })
		found = true
	} else if book.LastTradePrice != "" {
		if p, err := strconv.ParseFloat(book.LastTradePrice, 64); err == nil {
			yes = p
			found = true
		}
	}

	if !found || yes <= 0 || yes >= 1 {
		return 0, false
	}
	return yes, true
}

// bestPrice reduce los niveles del book con el comparador dado.
func bestPrice(entries []bookEntryRaw, better func(p, best float64) bool) float64 {
	best := 0.0
	first := true
	for _, e := range entries {
		p, err := strconv.ParseFloat(e.Price, 64)
		if err != nil {
			continue
		}
		if first || better(p, best) {
			best = p
			first = false
		}
	}
	return best
}

func shorten(s string) string {
	if len(s) > 20 {
		return s[:20]
	}
	return s
}
