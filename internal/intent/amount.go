package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Colloquial Chilean money forms: "12 millones", "12 palos", "12m", "12mm",
// "7,5 millones", "300 mil", "12.000.000" and bare digit strings.

const (
	millon = 1_000_000
	mil    = 1_000
)

var (
	reMillions = regexp.MustCompile(`(?:^|[^\d])(\d{1,3}(?:[.,]\d{1,2})?)\s*(millones|millon|palos|palo|mm|m)(?:$|[^a-z])`)
	reMiles    = regexp.MustCompile(`(?:^|[^\d])(\d{1,4})\s*(?:mil|lucas)(?:$|[^a-z])`)
	reGrouped  = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})+\b`)
	reBare     = regexp.MustCompile(`\b\d{5,10}\b`)

	reAmountTerm = regexp.MustCompile(`(\d[\d.,]*\s*(?:millones|millon|palos|mm|m|mil)?)\s+(?:en|a)\s+(24|36|48)\b`)

	reRUTWord = regexp.MustCompile(`\brut\b`)
)

// ParseAmount extracts a monetary amount in pesos from free text. It returns
// ok=false when no expression plausibly denoting an amount is present.
func ParseAmount(text string) (int64, bool) {
	s := Normalize(text)

	if m := reMillions.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			return int64(v * millon), true
		}
	}
	if m := reMiles.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return v * mil, true
		}
	}
	if loc := reGrouped.FindStringIndex(s); loc != nil && !rutLike(s, loc[1]) {
		if v, err := strconv.ParseInt(strings.ReplaceAll(s[loc[0]:loc[1]], ".", ""), 10, 64); err == nil {
			return v, true
		}
	}
	if loc := reBare.FindStringIndex(s); loc != nil && !rutLike(s, loc[1]) {
		if v, err := strconv.ParseInt(s[loc[0]:loc[1]], 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// rutLike reports that a bare or grouped digit run reads as a RUT rather than
// money: a check-digit suffix ("-9", "-k") follows it, or the message names
// the RUT explicitly ("mi rut es 12345678").
func rutLike(s string, end int) bool {
	if end < len(s) && s[end] == '-' {
		return true
	}
	return reRUTWord.MatchString(s)
}

// ParseAmountWithTerm matches the "<amount> en <24|36|48>" shorthand
// (down payment plus term, e.g. "5 millones en 36"). inferred reports that
// the figure carried no money word and was read as millions by convention;
// such parses need an explicit confirmation before acting on them.
func ParseAmountWithTerm(text string) (amount int64, term int, inferred, ok bool) {
	s := Normalize(text)
	m := reAmountTerm.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false, false
	}
	amount, ok = ParseAmount(m[1])
	if !ok {
		// A bare small figure before the term still reads as millions:
		// "5 en 36" means 5M over 36 months.
		digits := strings.TrimSpace(strings.Map(keepDigit, m[1]))
		v, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || v == 0 || v > 100 {
			return 0, 0, false, false
		}
		amount = v * millon
		inferred = true
	}
	term, _ = strconv.Atoi(m[2])
	return amount, term, inferred, true
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
