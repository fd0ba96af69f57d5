package storage

// sqlite.go — persistencia del portfolio en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `state`: una sola fila (id=1) con las cifras de capital. UPSERT.
//   - `open_positions`: una fila por posición abierta, keyed por
//     condition_id, con la posición serializada como JSON. UPSERT al
//     refrescar precio, DELETE al cerrar.
//   - `closed_positions` y `capital_history`: insert-only. Las columnas
//     status/pnl/closed_at se duplican fuera del JSON para poder hacer
//     queries sin deserializar.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/polytrend/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Cifras de capital, una sola fila
CREATE TABLE IF NOT EXISTS state (
    id                INTEGER PRIMARY KEY CHECK (id = 1),
    capital_initial   REAL     NOT NULL,
    capital_total     REAL     NOT NULL,
    capital_available REAL     NOT NULL,
    session_start     DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

-- Una fila por posición abierta
CREATE TABLE IF NOT EXISTS open_positions (
    condition_id TEXT PRIMARY KEY,
    data         TEXT     NOT NULL,
    updated_at   DATETIME NOT NULL
);

-- Histórico de cierres, insert-only
CREATE TABLE IF NOT EXISTS closed_positions (
    id           TEXT PRIMARY KEY,
    condition_id TEXT     NOT NULL,
    status       TEXT     NOT NULL,
    pnl          REAL     NOT NULL,
    closed_at    DATETIME NOT NULL,
    data         TEXT     NOT NULL
);

-- Curva de capital, insert-only
CREATE TABLE IF NOT EXISTS capital_history (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    ts      DATETIME NOT NULL,
    capital REAL     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_at ON closed_positions(closed_at DESC);
CREATE INDEX IF NOT EXISTS idx_capital_ts ON capital_history(ts);
`

// SQLiteStorage implementa ports.Storage sobre un fichero SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y
// aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// LoadState devuelve las cifras de capital guardadas, o nil si la tabla
// está vacía (primer arranque).
func (s *SQLiteStorage) LoadState(ctx context.Context) (*domain.CapitalState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT capital_initial, capital_total, capital_available, session_start FROM state WHERE id = 1`,
	)

	var st domain.CapitalState
	var sessionStart string
	err := row.Scan(&st.CapitalInitial, &st.CapitalTotal, &st.CapitalAvailable, &sessionStart)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LoadState: %w", err)
	}

	st.SessionStart, err = parseDBTime(sessionStart)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadState: session_start: %w", err)
	}
	return &st, nil
}

// SaveState hace upsert de la fila única de capital.
func (s *SQLiteStorage) SaveState(ctx context.Context, state domain.CapitalState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (id, capital_initial, capital_total, capital_available, session_start, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capital_initial   = excluded.capital_initial,
			capital_total     = excluded.capital_total,
			capital_available = excluded.capital_available,
			session_start     = excluded.session_start,
			updated_at        = excluded.updated_at
	`, state.CapitalInitial, state.CapitalTotal, state.CapitalAvailable,
		state.SessionStart.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storage.SaveState: %w", err)
	}
	return nil
}

// LoadOpenPositions devuelve todas las posiciones abiertas persistidas.
func (s *SQLiteStorage) LoadOpenPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM open_positions`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadOpenPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage.LoadOpenPositions: scan: %w", err)
		}
		var pos domain.Position
		if err := json.Unmarshal([]byte(data), &pos); err != nil {
			return nil, fmt.Errorf("storage.LoadOpenPositions: decode: %w", err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// UpsertOpenPosition guarda o actualiza una posición abierta.
func (s *SQLiteStorage) UpsertOpenPosition(ctx context.Context, pos domain.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("storage.UpsertOpenPosition: encode %s: %w", pos.ConditionID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO open_positions (condition_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(condition_id) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, pos.ConditionID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storage.UpsertOpenPosition: %s: %w", pos.ConditionID, err)
	}
	return nil
}

// DeleteOpenPosition borra una posición abierta. Borrar una inexistente
// no es error.
func (s *SQLiteStorage) DeleteOpenPosition(ctx context.Context, conditionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM open_positions WHERE condition_id = ?`, conditionID)
	if err != nil {
		return fmt.Errorf("storage.DeleteOpenPosition: %s: %w", conditionID, err)
	}
	return nil
}

// LoadClosedPositions devuelve el histórico de cierres, más antiguos primero.
func (s *SQLiteStorage) LoadClosedPositions(ctx context.Context) ([]domain.ClosedPosition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM closed_positions ORDER BY closed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadClosedPositions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ClosedPosition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage.LoadClosedPositions: scan: %w", err)
		}
		var rec domain.ClosedPosition
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("storage.LoadClosedPositions: decode: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AppendClosedPosition registra un cierre en el histórico.
func (s *SQLiteStorage) AppendClosedPosition(ctx context.Context, rec domain.ClosedPosition) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage.AppendClosedPosition: encode %s: %w", rec.ConditionID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO closed_positions (id, condition_id, status, pnl, closed_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.ConditionID, string(rec.Status), rec.PnL,
		rec.ClosedAt.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("storage.AppendClosedPosition: %s: %w", rec.ConditionID, err)
	}
	return nil
}

// LoadCapitalHistory devuelve la curva de capital en orden cronológico.
func (s *SQLiteStorage) LoadCapitalHistory(ctx context.Context) ([]domain.CapitalPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts, capital FROM capital_history ORDER BY ts ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadCapitalHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CapitalPoint
	for rows.Next() {
		var ts string
		var p domain.CapitalPoint
		if err := rows.Scan(&ts, &p.Capital); err != nil {
			return nil, fmt.Errorf("storage.LoadCapitalHistory: scan: %w", err)
		}
		if p.Time, err = parseDBTime(ts); err != nil {
			return nil, fmt.Errorf("storage.LoadCapitalHistory: ts: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendCapitalPoint añade un punto a la curva de capital.
func (s *SQLiteStorage) AppendCapitalPoint(ctx context.Context, point domain.CapitalPoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO capital_history (ts, capital) VALUES (?, ?)`,
		point.Time.UTC().Format(time.RFC3339Nano), point.Capital,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendCapitalPoint: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// parseDBTime acepta los dos formatos que SQLite puede devolver según
// cómo se insertó el valor.
func parseDBTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05.999999999-07:00", raw)
}
