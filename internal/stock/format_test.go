package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPesos(t *testing.T) {
	assert.Equal(t, "$12.990.000", FormatPesos(12_990_000))
	assert.Equal(t, "$990", FormatPesos(990))
	assert.Equal(t, "N/A", FormatPesos(0))
}

func TestFormatVehicle(t *testing.T) {
	v := Vehicle{
		Marca: "Nissan", Modelo: "Navara", Version: "2.3 LE", Anio: 2021,
		Precio: 19_990_000, Kilometraje: 45_000,
		Sucursal: "Movicenter", Comuna: "Huechuraba", Link: "pompeyo.cl/navara",
	}
	got := FormatVehicle(v)
	assert.Equal(t,
		"Nissan Navara - 2.3 LE (2021) - $19.990.000 - 45.000 km | Ubicación: Movicenter (Huechuraba) | Link: https://pompeyo.cl/navara",
		got)
}

func TestFormatVehicle_MissingFields(t *testing.T) {
	got := FormatVehicle(Vehicle{Modelo: "Kwid", Precio: 6_990_000})
	assert.Equal(t, "N/A Kwid - $6.990.000", got)
}

func TestFormatList(t *testing.T) {
	got := FormatList([]Vehicle{
		{Marca: "MG", Modelo: "3", Anio: 2022, Precio: 7_490_000},
		{Marca: "Renault", Modelo: "Kwid", Anio: 2021, Precio: 6_990_000},
	})
	assert.Contains(t, got, "Opciones encontradas:")
	assert.Contains(t, got, "1. MG 3 (2022) - $7.490.000")
	assert.Contains(t, got, "2. Renault Kwid (2021) - $6.990.000")
}

func TestFormatList_Empty(t *testing.T) {
	assert.Equal(t, "No hay vehículos que coincidan con esos criterios.", FormatList(nil))
}
