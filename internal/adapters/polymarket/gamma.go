package polymarket

// gamma.go — Gamma API: fallback de precios (cache ~2 min upstream) y
// fetch de eventos para el discovery.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/metrics"
)

const (
	gammaEventsPath  = "/events"
	gammaMarketsPath = "/markets"
)

// QuoteBySlug obtiene el par YES/NO de Gamma para un mercado.
// Implementa ports.MarketQuoter.
func (c *Client) QuoteBySlug(ctx context.Context, slug string) (domain.Quote, bool) {
	if slug == "" {
		return domain.Quote{}, false
	}

	reqURL := fmt.Sprintf("%s%s?slug=%s&limit=1", c.gammaBase, gammaMarketsPath, url.QueryEscape(slug))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, gammaTimeout, reqURL, &resp); err != nil {
		slog.Debug("gamma market fetch failed", "slug", slug, "err", err)
		metrics.QuoteFailures.WithLabelValues("gamma").Inc()
		return domain.Quote{}, false
	}
	if len(resp) == 0 {
		metrics.QuoteFailures.WithLabelValues("gamma").Inc()
		return domain.Quote{}, false
	}

	yes, no, ok := parseOutcomePrices(resp[0].OutcomePrices)
	if !ok {
		metrics.QuoteFailures.WithLabelValues("gamma").Inc()
		return domain.Quote{}, false
	}
	return domain.Quote{Yes: yes, No: no, Source: "gamma"}, true
}

// fetchEventBySlug devuelve un evento de Gamma, o ok=false si no existe o
// la llamada falla (el discovery sigue con la siguiente ciudad).
func (c *Client) fetchEventBySlug(ctx context.Context, slug string) (gammaEvent, bool) {
	reqURL := fmt.Sprintf("%s%s?slug=%s&limit=1", c.gammaBase, gammaEventsPath, url.QueryEscape(slug))

	var resp gammaEventsResponse
	if err := c.get(ctx, c.gammaLimiter, gammaTimeout, reqURL, &resp); err != nil {
		slog.Debug("gamma event fetch failed", "slug", slug, "err", err)
		return gammaEvent{}, false
	}
	if len(resp) == 0 {
		return gammaEvent{}, false
	}
	return resp[0], true
}
