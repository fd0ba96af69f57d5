package ports

import (
	"context"

	"github.com/alejandrodnm/polytrend/internal/domain"
)

// Storage persiste el estado del portfolio entre reinicios.
//
// Contrato: cierres y puntos de capital son insert-only (nunca se
// reescriben); las posiciones abiertas son upsert por condition_id y se
// borran al cerrar.
type Storage interface {
	// LoadState devuelve las cifras de capital persistidas, o nil si no hay.
	LoadState(ctx context.Context) (*domain.CapitalState, error)
	SaveState(ctx context.Context, state domain.CapitalState) error

	LoadOpenPositions(ctx context.Context) ([]domain.Position, error)
	UpsertOpenPosition(ctx context.Context, pos domain.Position) error
	DeleteOpenPosition(ctx context.Context, conditionID string) error

	LoadClosedPositions(ctx context.Context) ([]domain.ClosedPosition, error)
	AppendClosedPosition(ctx context.Context, rec domain.ClosedPosition) error

	LoadCapitalHistory(ctx context.Context) ([]domain.CapitalPoint, error)
	AppendCapitalPoint(ctx context.Context, point domain.CapitalPoint) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
