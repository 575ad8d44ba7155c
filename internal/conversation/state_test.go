package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agente-usados/server/internal/stock"
)

func TestApplyFilters_StickyMerge(t *testing.T) {
	var s State

	s.ApplyFilters(stock.ExtractedFilters{Segmento: stock.SegmentoCamioneta})
	s.ApplyFilters(stock.ExtractedFilters{Combustible: "Diesel"})

	// An empty extraction changes nothing.
	s.ApplyFilters(stock.ExtractedFilters{})
	assert.Equal(t, stock.SegmentoCamioneta, s.Segmento)
	assert.Equal(t, "Diesel", s.Combustible)

	// Excluding the fuel that was previously wanted drops the filter.
	s.ApplyFilters(stock.ExtractedFilters{ExcludeCombustible: "Diesel"})
	assert.Empty(t, s.Combustible)
	assert.Equal(t, "Diesel", s.ExcludeCombustible)
}

func TestPlannerState_FinancedFloor(t *testing.T) {
	s := State{
		PaymentMode:   PaymentFinanciado,
		DownPayment:   7_000_000,
		BudgetCeiling: 25_000_000,
		Segmento:      stock.SegmentoSuv,
	}
	ps := s.PlannerState()

	assert.Equal(t, int64(14_000_000), ps.PrecioMin)
	assert.Equal(t, int64(25_000_000), ps.PrecioMax)
	assert.Equal(t, stock.SegmentoSuv, ps.Segmento)
	assert.Equal(t, stock.OrderDesc, ps.Order)
}

func TestPlannerState_ContadoHasNoFloor(t *testing.T) {
	s := State{PaymentMode: PaymentContado, BudgetCeiling: 8_000_000}
	ps := s.PlannerState()

	assert.Zero(t, ps.PrecioMin)
	assert.Equal(t, int64(8_000_000), ps.PrecioMax)
}

func TestStrikes(t *testing.T) {
	var s State

	assert.False(t, s.RegisterStrike())
	assert.False(t, s.RegisterStrike())
	assert.True(t, s.RegisterStrike())

	s.ClearStrikes()
	assert.Zero(t, s.Strikes)
	assert.False(t, s.RegisterStrike())
}
