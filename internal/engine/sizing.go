package engine

// positionSize calcula el tamaño de la posición: entre SizeMinPct y
// SizeMaxPct del capital disponible, proporcional al precio YES dentro de
// la banda de entrada.
//
//	YES=0.22 → 5%  (menor convicción)
//	YES=0.27 → 10% (mayor convicción: el mercado ya está en 27¢)
//
// Más precio = más apuesta.
func positionSize(available, yesPrice float64, cfg Config) float64 {
	priceRange := cfg.EntryYesMax - cfg.EntryYesMin

	pct := cfg.SizeMinPct
	if priceRange > 0 {
		t := (yesPrice - cfg.EntryYesMin) / priceRange
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		pct = cfg.SizeMinPct + t*(cfg.SizeMaxPct-cfg.SizeMinPct)
	}

	amount := available * pct
	if amount > available {
		amount = available
	}
	return amount
}
