package portfolio

import (
	"sort"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

const (
	// minClosedForInsights: con menos cierres terminales no hay señal.
	minClosedForInsights = 5
	// minBucketTrades: buckets con menos trades se descartan.
	minBucketTrades = 2
	// maxBuckets por dimensión en el resultado.
	maxBuckets = 6
)

// HourBucket es el win rate de las entradas abiertas en una hora UTC.
type HourBucket struct {
	Hour    int     `json:"hour"`
	WinRate float64 `json:"win_rate"`
	Trades  int     `json:"trades"`
}

// RegionBucket es el win rate de las entradas de una región.
type RegionBucket struct {
	Region  string  `json:"region"`
	WinRate float64 `json:"win_rate"`
	Trades  int     `json:"trades"`
}

// Insights son estadísticas de aprendizaje sobre los cierres con resultado
// de resolución.
type Insights struct {
	OverallWinRate float64        `json:"overall_win_rate"`
	TotalTrades    int            `json:"total_trades"`
	ByHour         []HourBucket   `json:"by_hour"`
	ByRegion       []RegionBucket `json:"by_region"`
}

type tally struct {
	won   int
	total int
}

// Insights agrupa los cierres terminales por hora de entrada y por región,
// calcula el win rate por bucket, descarta buckets con menos de
// minBucketTrades trades y devuelve los maxBuckets mejores de cada
// dimensión. Devuelve nil con menos de minClosedForInsights cierres
// (no hay datos suficientes). Requiere el lock.
func (p *Portfolio) Insights() *Insights {
	var closed []domain.ClosedPosition
	for _, rec := range p.closed {
		if rec.Status.IsResolutionOutcome() {
			closed = append(closed, rec)
		}
	}
	if len(closed) < minClosedForInsights {
		return nil
	}

	byHour := make(map[int]*tally)
	byRegion := make(map[string]*tally)
	wonTotal := 0

	for _, rec := range closed {
		won := rec.Status == domain.StatusWon
		if won {
			wonTotal++
		}

		hour := rec.OpenedAt.UTC().Hour()
		if byHour[hour] == nil {
			byHour[hour] = &tally{}
		}
		byHour[hour].total++
		if won {
			byHour[hour].won++
		}

		region := domain.RegionFor(rec.City)
		if byRegion[region] == nil {
			byRegion[region] = &tally{}
		}
		byRegion[region].total++
		if won {
			byRegion[region].won++
		}
	}

	out := &Insights{
		OverallWinRate: float64(wonTotal) / float64(len(closed)),
		TotalTrades:    len(closed),
	}

	for hour, t := range byHour {
		if t.total < minBucketTrades {
			continue
		}
		out.ByHour = append(out.ByHour, HourBucket{
			Hour:    hour,
			WinRate: float64(t.won) / float64(t.total),
			Trades:  t.total,
		})
	}
	sort.Slice(out.ByHour, func(i, j int) bool {
		if out.ByHour[i].WinRate != out.ByHour[j].WinRate {
			return out.ByHour[i].WinRate > out.ByHour[j].WinRate
		}
		return out.ByHour[i].Hour < out.ByHour[j].Hour
	})
	if len(out.ByHour) > maxBuckets {
		out.ByHour = out.ByHour[:maxBuckets]
	}

	for region, t := range byRegion {
		if t.total < minBucketTrades {
			continue
		}
		out.ByRegion = append(out.ByRegion, RegionBucket{
			Region:  region,
			WinRate: float64(t.won) / float64(t.total),
			Trades:  t.total,
		})
	}
	sort.Slice(out.ByRegion, func(i, j int) bool {
		if out.ByRegion[i].WinRate != out.ByRegion[j].WinRate {
			return out.ByRegion[i].WinRate > out.ByRegion[j].WinRate
		}
		return out.ByRegion[i].Region < out.ByRegion[j].Region
	})
	if len(out.ByRegion) > maxBuckets {
		out.ByRegion = out.ByRegion[:maxBuckets]
	}

	return out
}
