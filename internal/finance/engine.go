// Package finance implements the dealership loan quote engine: fixed-rate
// annuity amortization with the 30%-50% down payment policy.
package finance

import (
	"math"

	errx "github.com/agente-usados/server/internal/core/error"
)

// Valid terms in months. Anything else normalizes to DefaultPlazo.
const (
	PlazoCorto   = 24
	DefaultPlazo = 36
	PlazoLargo   = 48
)

// Down payment bounds as a fraction of the list price. Dealership policy:
// a quote must never use a pie outside this band.
const (
	pieMinPct = 0.30
	pieMaxPct = 0.50
)

// cuotaStep is the display granularity: installments are floored to the
// nearest multiple, never rounded up.
const cuotaStep = 1000

// Config holds the engine parameters sourced from the environment.
type Config struct {
	// MonthlyRate is the flat monthly interest rate. Internal only: it is
	// never disclosed to the customer in any channel.
	MonthlyRate float64 `envconfig:"FINANCE_MONTHLY_RATE" default:"0.019"`
}

// Engine computes installment quotes. Pure and safe for concurrent use.
type Engine struct {
	rate float64
}

// NewEngine builds an engine with the configured monthly rate.
func NewEngine(cfg Config) *Engine {
	return &Engine{rate: cfg.MonthlyRate}
}

// Quote is the result of a single amortization computation. Derived and
// ephemeral: recomputed on demand, never persisted.
type Quote struct {
	PrecioLista    int64 `json:"precio_lista"`
	PieEfectivo    int64 `json:"pie_efectivo"`
	MontoFinanciar int64 `json:"monto_financiar"`
	Cuota          int64 `json:"cuota"`
	Plazo          int   `json:"plazo"`
	// PieAjustado reports that the requested pie fell outside the 30%-50%
	// band and was clamped; the response must explain the adjustment.
	PieAjustado bool `json:"pie_ajustado"`
}

// NormalizePlazo maps any term to one of the supported terms; unknown values
// fall back to 36 months rather than failing.
func NormalizePlazo(plazo int) int {
	switch plazo {
	case PlazoCorto, DefaultPlazo, PlazoLargo:
		return plazo
	default:
		return DefaultPlazo
	}
}

// PieMin returns the minimum admissible down payment for a list price.
func PieMin(precioLista int64) int64 {
	return int64(math.Floor(float64(precioLista) * pieMinPct))
}

// PieMax returns the maximum admissible down payment for a list price.
func PieMax(precioLista int64) int64 {
	return int64(math.Floor(float64(precioLista) * pieMaxPct))
}

// MinPrecioForPie returns the lowest list price a given down payment can
// finance: pie is at most 50% of the price, so precio >= 2*pie.
func MinPrecioForPie(pie int64) int64 {
	return 2 * pie
}

// Quote computes the installment for a vehicle at precioLista with the
// customer's pie over plazo months. The pie is clamped into [30%, 50%] of
// the list price before anything else.
func (e *Engine) Quote(precioLista, pie int64, plazo int) (Quote, error) {
	if precioLista <= 0 {
		return Quote{}, errx.Invalid("el precio de lista debe ser mayor que cero")
	}
	plazo = NormalizePlazo(plazo)

	pieMin, pieMax := PieMin(precioLista), PieMax(precioLista)
	pieEfectivo := pie
	if pieEfectivo < pieMin {
		pieEfectivo = pieMin
	}
	if pieEfectivo > pieMax {
		pieEfectivo = pieMax
	}

	monto := precioLista - pieEfectivo
	if monto <= 0 {
		// Unreachable while pieMax stays below 100%, but defended anyway.
		return Quote{}, errx.Policy("el pie cubre el precio completo; ajusta el pie para financiar")
	}

	raw := float64(monto) * e.factor(plazo)
	cuota := int64(math.Floor(raw/cuotaStep)) * cuotaStep

	return Quote{
		PrecioLista:    precioLista,
		PieEfectivo:    pieEfectivo,
		MontoFinanciar: monto,
		Cuota:          cuota,
		Plazo:          plazo,
		PieAjustado:    pieEfectivo != pie,
	}, nil
}

// MaxPriceForInstallment inverts the amortization formula: given a pie and a
// comfortable monthly installment, it returns the highest list price whose
// quote stays at or under that installment.
func (e *Engine) MaxPriceForInstallment(pie, cuotaDeseada int64, plazo int) (int64, error) {
	if pie < 0 {
		return 0, errx.Invalid("el pie no puede ser negativo")
	}
	if cuotaDeseada <= 0 {
		return 0, errx.Invalid("la cuota deseada debe ser mayor que cero")
	}
	plazo = NormalizePlazo(plazo)

	montoMax := int64(math.Floor(float64(cuotaDeseada) / e.factor(plazo)))
	return pie + montoMax, nil
}

// factor is the annuity factor r(1+r)^n / ((1+r)^n - 1) for the configured rate.
func (e *Engine) factor(plazo int) float64 {
	r := e.rate
	if r <= 0 {
		// Zero-rate degenerates to straight division.
		return 1 / float64(plazo)
	}
	pow := math.Pow(1+r, float64(plazo))
	return r * pow / (pow - 1)
}
