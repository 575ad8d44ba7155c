package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedVehicles(t *testing.T, repo *Repository) {
	t.Helper()
	_, err := repo.ReplaceAll(context.Background(), []Vehicle{
		{Marca: "Nissan", Modelo: "Navara", Version: "2.3 LE", Anio: 2021, Precio: 19_990_000, Kilometraje: 45_000, Combustible: "Diesel", Transmision: "Automatico", Segmento: SegmentoCamioneta, Sucursal: "Movicenter", Comuna: "Huechuraba", Link: "pompeyo.cl/navara"},
		{Marca: "Chevrolet", Modelo: "Colorado", Anio: 2020, Precio: 17_490_000, Kilometraje: 60_000, Combustible: "Diesel", Transmision: "Automatico", Segmento: SegmentoCamioneta},
		{Marca: "Peugeot", Modelo: "Landtrek", Anio: 2022, Precio: 21_990_000, Kilometraje: 30_000, Combustible: "Diesel", Transmision: "Mecanico", Segmento: SegmentoCamioneta},
		{Marca: "MG", Modelo: "3", Anio: 2022, Precio: 7_490_000, Kilometraje: 35_000, Combustible: "Gasolina", Transmision: "Mecanico", Segmento: SegmentoCityCar},
		{Marca: "Renault", Modelo: "Kwid", Anio: 2021, Precio: 6_990_000, Kilometraje: 28_000, Combustible: "Gasolina", Transmision: "Mecanico", Segmento: SegmentoCityCar},
		{Marca: "Citroen", Modelo: "Berlingo", Version: "MCA M Diesel 100HP MT", Anio: 2021, Precio: 13_490_000, Kilometraje: 52_000, Combustible: "Diesel", Transmision: "Mecanico", Segmento: SegmentoFurgon},
		{Marca: "Hyundai", Modelo: "Tucson", Anio: 2020, Precio: 14_990_000, Kilometraje: 70_000, Combustible: "Gasolina", Transmision: "Automatico", Segmento: SegmentoSuv},
	})
	require.NoError(t, err)
}

func TestSearch_SegmentAndCeiling(t *testing.T) {
	repo := testRepo(t)
	seedVehicles(t, repo)

	got, err := repo.Search(context.Background(), Filters{
		Segmento:  SegmentoCamioneta,
		PrecioMax: 30_000_000,
		Order:     OrderDesc,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Descending price, only pickups: never a furgón or a city car.
	assert.Equal(t, "Landtrek", got[0].Modelo)
	assert.Equal(t, "Navara", got[1].Modelo)
	assert.Equal(t, "Colorado", got[2].Modelo)
	for _, v := range got {
		assert.Equal(t, SegmentoCamioneta, v.Segmento)
	}
}

func TestSearch_Exclusions(t *testing.T) {
	repo := testRepo(t)
	seedVehicles(t, repo)

	got, err := repo.Search(context.Background(), Filters{
		Segmento:     SegmentoCamioneta,
		ExcludeMarca: "Nissan",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, v := range got {
		assert.NotEqual(t, "Nissan", v.Marca)
	}

	got, err = repo.Search(context.Background(), Filters{
		ExcludeCombustible: "Diesel",
	})
	require.NoError(t, err)
	for _, v := range got {
		assert.NotEqual(t, "Diesel", v.Combustible)
	}
}

func TestSearch_IdempotentOrdering(t *testing.T) {
	repo := testRepo(t)
	seedVehicles(t, repo)

	f := Filters{Combustible: "Diesel", PrecioMax: 22_000_000, Order: OrderAsc}
	first, err := repo.Search(context.Background(), f)
	require.NoError(t, err)
	second, err := repo.Search(context.Background(), f)
	require.NoError(t, err)

	// "Option N" resolution depends on identical filters yielding the
	// identical ordered list.
	assert.Equal(t, first, second)
}

func TestSearch_LimitDefaultsToPresentationCap(t *testing.T) {
	repo := testRepo(t)
	seedVehicles(t, repo)

	got, err := repo.Search(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Len(t, got, PresentationLimit)
}

func TestSummary(t *testing.T) {
	repo := testRepo(t)

	s, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Total)

	seedVehicles(t, repo)
	s, err = repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.Total)
	assert.Equal(t, int64(6_990_000), s.PrecioMin)
	assert.Equal(t, int64(21_990_000), s.PrecioMax)
	assert.Equal(t, 2020, s.AnioMin)
	assert.Equal(t, 2022, s.AnioMax)
}
