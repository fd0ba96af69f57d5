package polymarket

// discovery.go — descubrimiento de mercados meteorológicos diarios.
//
// Cada ciudad publica un evento "highest temperature in <city> on <date>"
// con un mercado por umbral de temperatura. El filtro aquí es la banda
// ancha (YES 0.10–0.40): se admiten mercados que se acercan a la banda de
// entrada desde abajo para que el trend tracker construya historial antes
// de que el entry gate del engine los confirme.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// weatherCities son las ciudades con mercados de temperatura activos.
var weatherCities = []string{
	"chicago", "dallas", "atlanta", "miami", "nyc",
	"seattle", "london", "wellington", "toronto", "seoul",
	"ankara", "paris", "sao-paulo", "buenos-aires",
	"los-angeles", "houston", "phoenix", "denver", "boston",
}

// cityUTCOffset son offsets fijos por ciudad. Hardcoded: la imagen de
// producción no lleva tzdata.
var cityUTCOffset = map[string]int{
	"chicago": -6, "dallas": -6, "atlanta": -5, "miami": -5,
	"nyc": -5, "boston": -5, "toronto": -5, "seattle": -8,
	"los-angeles": -8, "houston": -6, "phoenix": -7, "denver": -7,
	"london": 0, "paris": 1, "ankara": 3, "seoul": 9,
	"wellington": 13, "sao-paulo": -3, "buenos-aires": -3,
}

var monthNames = map[time.Month]string{
	time.January: "january", time.February: "february", time.March: "march",
	time.April: "april", time.May: "may", time.June: "june",
	time.July: "july", time.August: "august", time.September: "september",
	time.October: "october", time.November: "november", time.December: "december",
}

// DiscoveryConfig controla el filtro de candidatos.
type DiscoveryConfig struct {
	Cities       []string
	MinVolume    float64
	DaysAhead    int
	MinLocalHour int     // hora local mínima para escanear una ciudad
	WideYesMin   float64 // banda ancha para construir trend
	WideYesMax   float64
	EntryCenter  float64 // centro de la banda de entrada, para ordenar
}

// DefaultDiscoveryConfig devuelve el filtro de producción.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Cities:       weatherCities,
		MinVolume:    200,
		DaysAhead:    1,
		MinLocalHour: 11,
		WideYesMin:   0.10,
		WideYesMax:   0.40,
		EntryCenter:  0.245,
	}
}

// Discovery implementa ports.CandidateProvider sobre los eventos
// meteorológicos de Gamma.
type Discovery struct {
	client *Client
	cfg    DiscoveryConfig
	now    func() time.Time
}

// NewDiscovery crea un Discovery con el cliente y filtro dados.
func NewDiscovery(client *Client, cfg DiscoveryConfig) *Discovery {
	if len(cfg.Cities) == 0 {
		cfg.Cities = weatherCities
	}
	return &Discovery{client: client, cfg: cfg, now: time.Now}
}

// Candidates escanea los eventos del día (y siguientes según DaysAhead) de
// cada ciudad lista, filtra a la banda ancha y ordena por cercanía al
// centro de la banda de entrada. Los fallos por ciudad se saltan; solo la
// cancelación del contexto corta el escaneo.
func (d *Discovery) Candidates(ctx context.Context, skip map[string]struct{}) ([]domain.Candidate, error) {
	now := d.now().UTC()
	today := now.Truncate(24 * time.Hour)

	var out []domain.Candidate
	for day := 0; day <= d.cfg.DaysAhead; day++ {
		scanDate := today.AddDate(0, 0, day)
		for _, city := range d.cfg.Cities {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if !d.cityIsReady(city, scanDate) {
				continue
			}

			slug := buildEventSlug(city, scanDate)
			event, ok := d.client.fetchEventBySlug(ctx, slug)
			if !ok {
				continue
			}

			out = append(out, d.filterEventMarkets(event, city, today, skip)...)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].YesPrice-d.cfg.EntryCenter) < math.Abs(out[j].YesPrice-d.cfg.EntryCenter)
	})

	slog.Debug("discovery complete", "candidates", len(out))
	return out, nil
}

// filterEventMarkets aplica el filtro de banda ancha a los mercados de un
// evento.
func (d *Discovery) filterEventMarkets(event gammaEvent, city string, today time.Time, skip map[string]struct{}) []domain.Candidate {
	var out []domain.Candidate
	for _, gm := range event.Markets {
		if gm.ConditionID == "" {
			continue
		}
		if _, known := skip[gm.ConditionID]; known {
			continue
		}

		yes, no, ok := parseOutcomePrices(gm.OutcomePrices)
		if !ok {
			continue
		}
		if yes < d.cfg.WideYesMin || yes > d.cfg.WideYesMax {
			continue
		}
		if parseVolume(gm.Volume) < d.cfg.MinVolume {
			continue
		}
		if end := parseEndDate(gm.EndDate); !end.IsZero() && end.Before(today) {
			continue
		}

		out = append(out, mapCandidate(gm, city, yes, no))
	}
	return out
}

// cityIsReady: solo se escanea una ciudad cuando su fecha local coincide
// con la fecha objetivo y ya pasó la hora mínima. Antes de media mañana
// los mercados de temperatura no tienen señal.
func (d *Discovery) cityIsReady(city string, scanDate time.Time) bool {
	offset, ok := cityUTCOffset[city]
	if !ok {
		return false
	}
	localNow := d.now().UTC().Add(time.Duration(offset) * time.Hour)
	y1, m1, d1 := localNow.Date()
	y2, m2, d2 := scanDate.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 && localNow.Hour() >= d.cfg.MinLocalHour
}

// buildEventSlug construye el slug del evento diario de una ciudad.
func buildEventSlug(city string, date time.Time) string {
	return fmt.Sprintf("highest-temperature-in-%s-on-%s-%d-%d",
		city, monthNames[date.Month()], date.Day(), date.Year())
}
