package stock

import (
	"fmt"
	"strings"
)

// FormatList renders search results the way the assistant presents them:
// numbered so the customer can answer "la 3" later.
func FormatList(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return "No hay vehículos que coincidan con esos criterios."
	}
	var b strings.Builder
	b.WriteString("Opciones encontradas:\n")
	for i, v := range vehicles {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, FormatVehicle(v)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatVehicle renders one vehicle line with everything the customer needs:
// brand, model, version, year, price, mileage, location and link.
func FormatVehicle(v Vehicle) string {
	var b strings.Builder

	marca := orNA(v.Marca)
	modelo := orNA(v.Modelo)
	b.WriteString(marca + " " + modelo)
	if version := strings.TrimSpace(v.Version); version != "" {
		b.WriteString(" - " + version)
	}
	if v.Anio > 0 {
		b.WriteString(fmt.Sprintf(" (%d)", v.Anio))
	}
	b.WriteString(" - " + FormatPesos(v.Precio))
	if v.Kilometraje > 0 {
		b.WriteString(fmt.Sprintf(" - %s km", groupDigits(v.Kilometraje)))
	}
	if v.Sucursal != "" || v.Comuna != "" {
		b.WriteString(" | Ubicación: " + strings.TrimSpace(v.Sucursal))
		if v.Comuna != "" {
			b.WriteString(" (" + v.Comuna + ")")
		}
	}
	if v.Link != "" {
		link := v.Link
		if !strings.HasPrefix(link, "http") {
			link = "https://" + link
		}
		b.WriteString(" | Link: " + link)
	}
	return b.String()
}

// FormatPesos renders an amount as "$12.990.000".
func FormatPesos(amount int64) string {
	if amount <= 0 {
		return "N/A"
	}
	return "$" + groupDigits(amount)
}

func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
