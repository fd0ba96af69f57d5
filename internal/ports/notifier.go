package ports

import (
	"context"

	"github.com/alejandrodnm/polytrend/internal/portfolio"
)

// Notifier presenta el estado del portfolio al usuario tras cada ciclo.
type Notifier interface {
	// Notify muestra el snapshot. En la implementación de consola,
	// imprime una línea compacta o una tabla formateada.
	Notify(ctx context.Context, snap portfolio.Snapshot) error
}
