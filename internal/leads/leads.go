// Package leads captures qualified customer contacts for human follow-up.
// Records are append-only: a returning customer produces a new lead, never an
// update.
package leads

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	logx "github.com/agente-usados/server/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nombre TEXT NOT NULL,
    rut TEXT,
    email TEXT,
    patente_parte_pago TEXT,
    kilometraje_parte_pago INTEGER,
    notas TEXT,
    thread_id TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

// Lead is one captured contact. RUT and email are individually optional;
// requiring at least one is the dialogue policy's job, not the store's.
type Lead struct {
	ID               int64
	Nombre           string
	RUT              string
	Email            string
	PartePagoPatente string
	PartePagoKm      int64
	Notas            string
	ThreadID         string
	CreatedAt        time.Time
}

// Result is what the customer hears back from a registration attempt.
type Result struct {
	OK      bool
	Message string
}

// Store persists leads in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the lead database and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open leads db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init leads schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register validates and appends a lead. The only hard validation is a
// non-empty name; everything else is permissive so a partial contact is
// never lost.
func (s *Store) Register(ctx context.Context, lead Lead) (Result, error) {
	lead.Nombre = strings.TrimSpace(lead.Nombre)
	if lead.Nombre == "" {
		return Result{
			OK:      false,
			Message: "Para registrarte necesito tu nombre. ¿Me lo puedes dar?",
		}, nil
	}
	lead.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads
		(nombre, rut, email, patente_parte_pago, kilometraje_parte_pago, notas, thread_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.Nombre, lead.RUT, lead.Email, lead.PartePagoPatente,
		lead.PartePagoKm, lead.Notas, lead.ThreadID,
		lead.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Result{}, fmt.Errorf("insert lead: %w", err)
	}
	id, _ := res.LastInsertId()

	logx.Info().
		Int64("leadID", id).
		Str("threadID", lead.ThreadID).
		Msg("Lead registered")

	return Result{
		OK:      true,
		Message: fmt.Sprintf("¡Listo %s! Quedaste registrado, un ejecutivo te contactará pronto.", lead.Nombre),
	}, nil
}

// Count reports the number of captured leads, for the health endpoint.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&n)
	return n, err
}
