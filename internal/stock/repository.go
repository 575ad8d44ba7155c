package stock

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	errx "github.com/agente-usados/server/internal/core/error"
	logx "github.com/agente-usados/server/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS vehiculos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    id_externo TEXT,
    marca TEXT,
    modelo TEXT,
    version TEXT,
    anio INTEGER,
    precio INTEGER,
    kilometraje INTEGER,
    transmision TEXT,
    combustible TEXT,
    segmento TEXT,
    sucursal TEXT,
    comuna TEXT,
    placa_patente TEXT,
    link TEXT,
    updated_at TEXT DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_vehiculos_precio ON vehiculos(precio);
CREATE INDEX IF NOT EXISTS idx_vehiculos_anio ON vehiculos(anio);
CREATE INDEX IF NOT EXISTS idx_vehiculos_marca ON vehiculos(marca);
CREATE INDEX IF NOT EXISTS idx_vehiculos_anio_precio ON vehiculos(anio, precio);
`

// Repository is the searchable inventory table. Reads only, except for
// ReplaceAll which the CSV loader uses.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the inventory database and ensures the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open stock db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init stock schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Search returns vehicles matching the filters, ordered by price. Given
// unchanged inventory, identical filters yield the identical ordered list;
// "option N" resolution depends on that.
func (r *Repository) Search(ctx context.Context, f Filters) ([]Vehicle, error) {
	conditions := []string{"1=1"}
	args := []any{}

	add := func(cond string, v any) {
		conditions = append(conditions, cond)
		args = append(args, v)
	}

	if f.PrecioMin > 0 {
		add("precio >= ?", f.PrecioMin)
	}
	if f.PrecioMax > 0 {
		add("precio <= ?", f.PrecioMax)
	}
	if f.AnioMin > 0 {
		add("anio >= ?", f.AnioMin)
	}
	if f.AnioMax > 0 {
		add("anio <= ?", f.AnioMax)
	}
	if f.KmMax > 0 {
		add("(kilometraje IS NULL OR kilometraje <= ?)", f.KmMax)
	}
	if f.Marca != "" {
		add("LOWER(marca) LIKE ?", "%"+strings.ToLower(f.Marca)+"%")
	}
	if f.Modelo != "" {
		add("LOWER(modelo) LIKE ?", "%"+strings.ToLower(f.Modelo)+"%")
	}
	if f.Segmento != "" {
		add("segmento = ?", f.Segmento)
	}
	if f.Combustible != "" {
		add("combustible = ?", f.Combustible)
	}
	if f.Transmision != "" {
		add("transmision = ?", f.Transmision)
	}
	if f.ExcludeMarca != "" {
		add("LOWER(marca) NOT LIKE ?", "%"+strings.ToLower(f.ExcludeMarca)+"%")
	}
	if f.ExcludeModelo != "" {
		add("LOWER(modelo) NOT LIKE ?", "%"+strings.ToLower(f.ExcludeModelo)+"%")
	}
	if f.ExcludeCombustible != "" {
		add("combustible != ?", f.ExcludeCombustible)
	}

	order := "ASC"
	if f.Order == OrderDesc {
		order = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = PresentationLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, marca, modelo, version, anio, precio, kilometraje,
		        transmision, combustible, segmento, sucursal, comuna, placa_patente, link
		 FROM vehiculos WHERE %s ORDER BY precio %s, id ASC LIMIT ?`,
		strings.Join(conditions, " AND "), order,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errx.Upstream(err, "stock search failed")
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		var km sql.NullInt64
		if err := rows.Scan(
			&v.ID, &v.Marca, &v.Modelo, &v.Version, &v.Anio, &v.Precio, &km,
			&v.Transmision, &v.Combustible, &v.Segmento, &v.Sucursal, &v.Comuna,
			&v.PlacaPatente, &v.Link,
		); err != nil {
			return nil, errx.Upstream(err, "stock row scan failed")
		}
		v.Kilometraje = km.Int64
		out = append(out, v)
	}
	return out, rows.Err()
}

// Summary reports inventory totals and ranges.
func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehiculos").Scan(&s.Total); err != nil {
		return Summary{}, errx.Upstream(err, "stock summary failed")
	}
	if s.Total == 0 {
		return s, nil
	}
	err := r.db.QueryRowContext(ctx,
		"SELECT MIN(precio), MAX(precio), MIN(anio), MAX(anio) FROM vehiculos",
	).Scan(&s.PrecioMin, &s.PrecioMax, &s.AnioMin, &s.AnioMax)
	if err != nil {
		return Summary{}, errx.Upstream(err, "stock summary failed")
	}
	return s, nil
}

// ReplaceAll swaps the whole table for the given records in one transaction.
// Used by the CSV loader; the conversational core never calls it.
func (r *Repository) ReplaceAll(ctx context.Context, vehicles []Vehicle) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stock replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vehiculos"); err != nil {
		return 0, fmt.Errorf("clear stock: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehiculos
		(id_externo, marca, modelo, version, anio, precio, kilometraje,
		 transmision, combustible, segmento, sucursal, comuna, placa_patente, link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare stock insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vehicles {
		idExterno := v.PlacaPatente
		if _, err := stmt.ExecContext(ctx,
			idExterno, v.Marca, v.Modelo, v.Version, v.Anio, v.Precio, v.Kilometraje,
			v.Transmision, v.Combustible, v.Segmento, v.Sucursal, v.Comuna,
			v.PlacaPatente, v.Link,
		); err != nil {
			return 0, fmt.Errorf("insert vehicle %s %s: %w", v.Marca, v.Modelo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stock replace: %w", err)
	}

	logx.Info().Int("vehicles", len(vehicles)).Msg("Stock replaced")
	return len(vehicles), nil
}
