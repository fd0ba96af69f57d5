package engine

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/polytrend/internal/domain"
	"github.com/alejandrodnm/polytrend/internal/ports"
)

// maxYesSanity: un precio YES por encima de 0.50 en la banda de operación
// de esta estrategia indica que se leyó el lado equivocado del book.
// Umbral literal ligado a la estrategia, no generalizable.
const maxYesSanity = 0.50

// primaryFailureLimit: fallos consecutivos del CLOB antes de degradar a
// Gamma por el resto del sweep.
const primaryFailureLimit = 2

// Arbiter decide la fuente de precio por mercado dentro de un sweep:
// primero el CLOB (tiempo real) y, si falla o devuelve un valor
// sospechoso, Gamma (cache ~2 min). Tras primaryFailureLimit fallos
// consecutivos del CLOB deja de intentarlo por el resto del sweep.
//
// Un Arbiter vale para UN sweep: crear uno nuevo por sweep reinicia la
// degradación.
type Arbiter struct {
	primary  ports.TokenQuoter
	fallback ports.MarketQuoter

	failures int
	demoted  bool
}

// NewArbiter crea un Arbiter limpio para un sweep.
func NewArbiter(primary ports.TokenQuoter, fallback ports.MarketQuoter) *Arbiter {
	return &Arbiter{primary: primary, fallback: fallback}
}

// QuotePrimary intenta solo la fuente primaria, con sanity check y conteo
// de fallos. Se usa en el loop de candidatos, donde no hay slug fiable
// todavía y un precio de cache no sirve para construir trend.
func (a *Arbiter) QuotePrimary(ctx context.Context, tokenID string) (domain.Quote, bool) {
	if a.demoted || tokenID == "" {
		return domain.Quote{}, false
	}

	q, ok := a.primary.QuoteByToken(ctx, tokenID)
	if ok && q.Yes > maxYesSanity {
		// Probablemente devolvió el token NO: tratar como fallo.
		slog.Debug("discarding suspicious yes quote", "yes", q.Yes, "token", truncate(tokenID, 20))
		ok = false
	}

	if !ok {
		a.failures++
		if a.failures >= primaryFailureLimit {
			if !a.demoted {
				slog.Warn("primary source unreliable, using fallback for rest of sweep")
			}
			a.demoted = true
		}
		return domain.Quote{}, false
	}

	a.failures = 0
	return q, true
}

// Quote intenta primaria y después fallback. El fallback se intenta siempre
// que la primaria no dé precio usable, degradada o no. Si ninguna fuente da
// precio devuelve ok=false y el mercado se salta en este refresh.
func (a *Arbiter) Quote(ctx context.Context, tokenID, slug string) (domain.Quote, bool) {
	if q, ok := a.QuotePrimary(ctx, tokenID); ok {
		return q, true
	}
	if slug == "" {
		return domain.Quote{}, false
	}
	return a.fallback.QuoteBySlug(ctx, slug)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
