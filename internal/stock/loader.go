package stock

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Real file header: Sucursal, Ubicación, Comuna, Marca, Modelo, Versión,
// Año, Kilometraje, Placa Patente, Color Exterior, Precio Lista, Segmento,
// Link. Exports vary, so every column is matched through aliases, and broken
// encodings (the ñ/ó columns read as U+FFFD) are tolerated.
var columnAliases = map[string][]string{
	"marca":         {"marca", "brand", "make"},
	"modelo":        {"modelo", "model"},
	"version":       {"version", "versin"},
	"anio":          {"año", "ao", "aoo", "anio", "ano", "year"},
	"precio":        {"precio", "precio lista", "price"},
	"kilometraje":   {"kilometraje", "km", "kilometros", "mileage"},
	"transmision":   {"transmision", "transmicion", "transmission", "trans"},
	"combustible":   {"combustible", "fuel", "fuel_type"},
	"segmento":      {"segmento", "segment"},
	"sucursal":      {"sucursal"},
	"comuna":        {"comuna"},
	"placa_patente": {"placa patente", "placa_patente", "patente"},
	"link":          {"link", "url"},
}

// LoadCSV parses the stock export and replaces the repository contents.
// Returns the number of vehicles loaded. A missing file is not an error:
// the repository keeps whatever it had.
func LoadCSV(ctx context.Context, repo *Repository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open stock file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse stock file: %w", err)
	}
	if len(rows) < 2 {
		return 0, nil
	}

	idx := matchColumns(rows[0])
	var vehicles []Vehicle
	for _, row := range rows[1:] {
		v := rowToVehicle(row, idx)
		if v.Marca == "" && v.Modelo == "" && v.Precio == 0 {
			continue
		}
		vehicles = append(vehicles, v)
	}
	if len(vehicles) == 0 {
		return 0, nil
	}
	return repo.ReplaceAll(ctx, vehicles)
}

// matchColumns maps canonical field names to column indexes using the alias
// table over encoding-normalized header names.
func matchColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[normalizeHeader(h)] = i
	}
	idx := make(map[string]int)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := byName[normalizeHeader(alias)]; ok {
				idx[field] = i
				break
			}
		}
	}
	return idx
}

// normalizeHeader folds case, accents and the U+FFFD replacement rune that
// broken exports put where ñ/ó used to be.
func normalizeHeader(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer("�", "o", "ó", "o", "ñ", "n", "á", "a", "é", "e", "í", "i", "ú", "u").Replace(s)
	return s
}

func rowToVehicle(row []string, idx map[string]int) Vehicle {
	get := func(field string) string {
		i, ok := idx[field]
		if !ok || i >= len(row) {
			return ""
		}
		return cleanCell(row[i])
	}
	return Vehicle{
		Marca:        get("marca"),
		Modelo:       get("modelo"),
		Version:      get("version"),
		Anio:         int(parseNumber(get("anio"))),
		Precio:       parseNumber(get("precio")),
		Kilometraje:  parseNumber(get("kilometraje")),
		Transmision:  get("transmision"),
		Combustible:  get("combustible"),
		Segmento:     get("segmento"),
		Sucursal:     get("sucursal"),
		Comuna:       get("comuna"),
		PlacaPatente: get("placa_patente"),
		Link:         get("link"),
	}
}

// cleanCell repairs mojibake left by re-encoded exports before storing text.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsRune(s, '�') {
		return s
	}
	// Context fixes first, then the generic o-substitution.
	s = strings.ReplaceAll(s, "Am�rico", "Americo")
	s = strings.ReplaceAll(s, "�u�oa", "Nunoa")
	s = strings.ReplaceAll(s, "�uñoa", "Nunoa")
	s = strings.ReplaceAll(s, "�", "o")
	return strings.TrimSpace(s)
}

// parseNumber reads integers that may carry thousand separators or a spurious
// decimal tail ("12.990.000", "85,000", "2021.0").
func parseNumber(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// "2021.0" style: a single separator followed by 1-2 digits is a decimal,
	// not a thousands group.
	if i := strings.LastIndexAny(s, ".,"); i >= 0 && len(s)-i-1 <= 2 && strings.Count(s, ".")+strings.Count(s, ",") == 1 {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
			return int64(f)
		}
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return 0
}
