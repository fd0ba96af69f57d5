package ports

import (
	"context"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// CandidateProvider descubre mercados candidatos ya filtrados a la banda
// ancha (YES 0.10–0.40) y ordenados por cercanía al centro de la banda de
// entrada. Los IDs en skip (ya abiertos o cerrados) no se devuelven.
type CandidateProvider interface {
	Candidates(ctx context.Context, skip map[string]struct{}) ([]domain.Candidate, error)
}

// TokenQuoter es la fuente primaria de precios: el order book del CLOB por
// token ID, baja latencia. El fallo (no-200, body malformado, timeout,
// precio fuera de (0,1)) se señala con ok=false, nunca con panic.
type TokenQuoter interface {
	QuoteByToken(ctx context.Context, tokenID string) (domain.Quote, bool)
}

// MarketQuoter es la fuente de fallback: precios de Gamma por slug, con
// frescura más gruesa (~2 min de cache upstream).
type MarketQuoter interface {
	QuoteBySlug(ctx context.Context, slug string) (domain.Quote, bool)
}
