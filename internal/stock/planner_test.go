package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFilters(t *testing.T) {
	cases := []struct {
		name string
		norm string
		want ExtractedFilters
	}{
		{
			name: "pickup maps to camioneta",
			norm: "busco una pickup",
			want: ExtractedFilters{Segmento: SegmentoCamioneta},
		},
		{
			name: "pick up with space",
			norm: "quiero una pick up diesel",
			want: ExtractedFilters{Segmento: SegmentoCamioneta, Combustible: "Diesel"},
		},
		{
			name: "colloquial fuel",
			norm: "algo petrolero y automatico",
			want: ExtractedFilters{Combustible: "Diesel", Transmision: "Automatico"},
		},
		{
			name: "bencinero",
			norm: "un suv bencinero",
			want: ExtractedFilters{Segmento: SegmentoSuv, Combustible: "Gasolina"},
		},
		{
			name: "brand exclusion",
			norm: "que no sea nissan",
			want: ExtractedFilters{ExcludeMarca: "Nissan"},
		},
		{
			name: "model exclusion for unknown brand word",
			norm: "cualquiera menos navara",
			want: ExtractedFilters{ExcludeModelo: "Navara"},
		},
		{
			name: "fuel exclusion clears same fuel filter",
			norm: "no quiero diesel",
			want: ExtractedFilters{ExcludeCombustible: "Diesel"},
		},
		{
			name: "electric exclusion plural",
			norm: "no me gustan los electricos",
			want: ExtractedFilters{ExcludeCombustible: "Electrico"},
		},
		{
			name: "no guessing on unmapped type words",
			norm: "busco un auto familiar grande",
			want: ExtractedFilters{},
		},
		{
			name: "van maps to furgon",
			norm: "necesito una van para reparto",
			want: ExtractedFilters{Segmento: SegmentoFurgon},
		},
		{
			name: "segment word inside another word does not match",
			norm: "vi un aviso en elsuvio",
			want: ExtractedFilters{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractFilters(tc.norm))
		})
	}
}

func TestPlan_CarriesStickyFiltersAndDefaults(t *testing.T) {
	// A type preference stated turns ago still constrains this search.
	f := Plan(PlannerState{
		Segmento:  SegmentoCamioneta,
		PrecioMax: 30_000_000,
	})

	assert.Equal(t, SegmentoCamioneta, f.Segmento)
	assert.Equal(t, int64(30_000_000), f.PrecioMax)
	assert.Equal(t, OrderDesc, f.Order)
	assert.Equal(t, PresentationLimit, f.Limit)
}

func TestPlan_KeepsRequestedOrder(t *testing.T) {
	f := Plan(PlannerState{PrecioMin: 14_000_000, Order: OrderAsc})
	assert.Equal(t, OrderAsc, f.Order)
	assert.Equal(t, int64(14_000_000), f.PrecioMin)
}
