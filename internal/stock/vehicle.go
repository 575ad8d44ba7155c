// Package stock owns the vehicle inventory: a SQLite-backed repository, the
// CSV loader that feeds it, and the query planner that turns qualification
// state into structured searches. The core only reads vehicles; it never
// fabricates or mutates one.
package stock

// Vehicle is a snapshot of one inventory row. Price is in whole Chilean
// pesos.
type Vehicle struct {
	ID           int64  `json:"id"`
	Marca        string `json:"marca"`
	Modelo       string `json:"modelo"`
	Version      string `json:"version"`
	Anio         int    `json:"anio"`
	Precio       int64  `json:"precio"`
	Kilometraje  int64  `json:"kilometraje"`
	Transmision  string `json:"transmision"`
	Combustible  string `json:"combustible"`
	Segmento     string `json:"segmento"`
	Sucursal     string `json:"sucursal"`
	Comuna       string `json:"comuna"`
	PlacaPatente string `json:"placa_patente"`
	Link         string `json:"link"`
}

// Order controls price ordering of search results.
type Order string

const (
	OrderAsc  Order = "asc"  // cheapest first
	OrderDesc Order = "desc" // closest to a ceiling first
)

// Filters is one structured search request. Zero values mean "no filter".
type Filters struct {
	PrecioMin   int64
	PrecioMax   int64
	AnioMin     int
	AnioMax     int
	KmMax       int64
	Marca       string // substring match
	Modelo      string // substring match
	Segmento    string // exact, fixed vocabulary
	Combustible string // exact, fixed vocabulary
	Transmision string // exact, fixed vocabulary

	ExcludeMarca       string
	ExcludeModelo      string
	ExcludeCombustible string

	Order Order
	Limit int
}

// Summary describes the whole inventory: total count plus price and year
// ranges.
type Summary struct {
	Total     int   `json:"total"`
	PrecioMin int64 `json:"precio_min"`
	PrecioMax int64 `json:"precio_max"`
	AnioMin   int   `json:"anio_min"`
	AnioMax   int   `json:"anio_max"`
}

// Fixed segment vocabulary as stored in the stock file.
const (
	SegmentoCityCar   = "CityCar"
	SegmentoSuv       = "Suv"
	SegmentoSedan     = "Sedan"
	SegmentoCamioneta = "Camioneta"
	SegmentoFurgon    = "Furgon"
)

// PresentationLimit is the fixed result cap when showing options to a
// customer.
const PresentationLimit = 5
