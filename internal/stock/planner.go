package stock

import (
	"regexp"
	"strings"
)

// Fixed vehicle-type lexicon. Ambiguous or unmapped phrases pass through
// unfiltered; the planner never guesses a segment.
var segmentLexicon = map[string]string{
	"pickup":    SegmentoCamioneta,
	"pick up":   SegmentoCamioneta,
	"pick-up":   SegmentoCamioneta,
	"camioneta": SegmentoCamioneta,
	"furgon":    SegmentoFurgon,
	"van":       SegmentoFurgon,
	"suv":       SegmentoSuv,
	"sedan":     SegmentoSedan,
	"city car":  SegmentoCityCar,
	"citycar":   SegmentoCityCar,
}

var fuelLexicon = map[string]string{
	"diesel":    "Diesel",
	"petrolero": "Diesel",
	"bencina":   "Gasolina",
	"bencinero": "Gasolina",
	"gasolina":  "Gasolina",
	"hibrido":   "Hibrido",
	"electrico": "Electrico",
}

var transmissionLexicon = map[string]string{
	"automatico": "Automatico",
	"automatica": "Automatico",
	"at":         "Automatico",
	"dct":        "Automatico",
	"mecanico":   "Mecanico",
	"mecanica":   "Mecanico",
	"mt":         "Mecanico",
	"manual":     "Mecanico",
}

var (
	reExcludeMarca = regexp.MustCompile(`(?:que no sea|menos|excepto|salvo|no quiero)\s+(?:un[a]?\s+)?([a-z]+)`)
	reNoFuel       = regexp.MustCompile(`no\s+(?:quiero\s+|me gustan\s+(?:los\s+)?)?(diesel|electricos?|bencineros?|gasolina|hibridos?)`)
)

// Known brands for exclusion matching; an excluded word outside this list is
// tried as a model name instead.
var knownMarcas = map[string]bool{
	"nissan": true, "chevrolet": true, "toyota": true, "peugeot": true,
	"citroen": true, "renault": true, "kia": true, "hyundai": true,
	"mazda": true, "ford": true, "mg": true, "chery": true, "jac": true,
	"suzuki": true, "mitsubishi": true, "volkswagen": true, "fiat": true,
	"opel": true, "subaru": true, "honda": true, "ram": true, "maxus": true,
}

// PlannerState is the slice of qualification state the planner consumes:
// sticky filters plus the price bounds the policy decided on.
type PlannerState struct {
	Segmento           string
	Combustible        string
	Transmision        string
	ExcludeMarca       string
	ExcludeModelo      string
	ExcludeCombustible string

	PrecioMin int64
	PrecioMax int64
	Order     Order
}

// Plan builds the structured search request from tracked state. Sticky
// filters always carry forward; the result cap is fixed for presentation.
func Plan(s PlannerState) Filters {
	order := s.Order
	if order == "" {
		order = OrderDesc
	}
	return Filters{
		PrecioMin:          s.PrecioMin,
		PrecioMax:          s.PrecioMax,
		Segmento:           s.Segmento,
		Combustible:        s.Combustible,
		Transmision:        s.Transmision,
		ExcludeMarca:       s.ExcludeMarca,
		ExcludeModelo:      s.ExcludeModelo,
		ExcludeCombustible: s.ExcludeCombustible,
		Order:              order,
		Limit:              PresentationLimit,
	}
}

// ExtractedFilters are filter words found in one normalized message; they
// become sticky on the conversation once set.
type ExtractedFilters struct {
	Segmento           string
	Combustible        string
	Transmision        string
	ExcludeMarca       string
	ExcludeModelo      string
	ExcludeCombustible string
}

// ExtractFilters scans a normalized message for vehicle-type, fuel,
// transmission and exclusion phrases using the fixed lexicons.
func ExtractFilters(norm string) ExtractedFilters {
	var out ExtractedFilters

	for phrase, segmento := range segmentLexicon {
		if containsWord(norm, phrase) {
			out.Segmento = segmento
			break
		}
	}
	for phrase, fuel := range fuelLexicon {
		if containsWord(norm, phrase) {
			out.Combustible = fuel
			break
		}
	}
	for phrase, trans := range transmissionLexicon {
		if containsWord(norm, phrase) {
			out.Transmision = trans
			break
		}
	}

	if m := reNoFuel.FindStringSubmatch(norm); m != nil {
		out.ExcludeCombustible = normalizeFuel(m[1])
		// A fuel mentioned only to exclude it must not also filter for it.
		if out.Combustible == out.ExcludeCombustible {
			out.Combustible = ""
		}
	}
	if m := reExcludeMarca.FindStringSubmatch(norm); m != nil && out.ExcludeCombustible == "" {
		word := m[1]
		if knownMarcas[word] {
			out.ExcludeMarca = titleWord(word)
		} else if _, isFuel := fuelLexicon[word]; !isFuel && len(word) > 2 {
			out.ExcludeModelo = titleWord(word)
		}
	}
	return out
}

func normalizeFuel(word string) string {
	word = strings.TrimSuffix(word, "s")
	if word == "electrico" {
		return "Electrico"
	}
	if word == "bencinero" || word == "gasolina" {
		return "Gasolina"
	}
	if word == "hibrido" {
		return "Hibrido"
	}
	if word == "diesel" {
		return "Diesel"
	}
	return ""
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

// containsWord reports a whole-word (or whole-phrase) match.
func containsWord(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || s[start-1] == ' '
		afterOK := end == len(s) || s[end] == ' ' || s[end] == ',' || s[end] == '.' || s[end] == '?'
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}
