// Package intent decides whether an inbound message is automotive-related and
// which gate-bypass signals it carries. Rule predicates run first and are
// pure; the language model is only a fallback for the coarse topic call.
package intent

import (
	"regexp"
	"strings"
)

// Signals is the per-message rule output consumed by the dialogue policy.
type Signals struct {
	Normalized string

	// Monetary content. AmountInferred marks a figure read as millions by
	// convention alone ("5 en 36"); the policy confirms those before use.
	Amount         int64
	HasAmount      bool
	AmountInferred bool
	Term           int // months, only set by the "<amount> en <term>" shorthand
	HasTerm        bool

	// Reference to a previously shown list, 1-based. Zero means none.
	OptionRef int

	Greeting       bool
	LeadData       bool
	FinancingVocab bool

	// Bypass reports that the message must be routed on-topic without
	// consulting the topic classifier; Reason names the rule that fired.
	Bypass bool
	Reason string
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u",
)

// Normalize lowercases, folds accents and collapses whitespace so every rule
// sees one canonical form.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = accentFolder.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	reOptionRef = regexp.MustCompile(`\b(?:opcion|option|alternativa|numero)\s*(\d{1,2})\b|\bla\s+(\d{1,2})\b|\bel\s+(\d{1,2})\b`)
	reRUTShaped = regexp.MustCompile(`\b\d{1,2}[.]?\d{3}[.]?\d{3}-?[\dk]\b|\b\d{7,9}-?[\dk]?\b`)
	reDigits    = regexp.MustCompile(`\d`)

	financingWords = []string{
		"cuota", "pie", "plazo", "financi", "mensual", "credito",
		"cara", "carisima", "barata", "alta", "baja",
	}
	handoffMarkers = []string{
		"mis datos", "te dejo", "aqui van", "ahi van", "my details",
		"anota", "apunta",
	}
	greetingWords = []string{
		"hola", "buenas", "buenos dias", "buenas tardes", "buenas noches",
		"gracias", "ok", "ya", "dale", "vale", "perfecto", "genial",
		"si", "no", "hello", "hi", "chao", "adios",
	}
)

// Rule is one independent bypass predicate over normalized text.
type Rule struct {
	Name  string
	Match func(norm string) bool
}

// BypassRules is the ordered set of predicates that must never be treated as
// off-topic, evaluated before any model call.
var BypassRules = []Rule{
	{Name: "monetary_expression", Match: func(s string) bool {
		_, ok := ParseAmount(s)
		return ok
	}},
	{Name: "amount_with_term", Match: func(s string) bool {
		_, _, _, ok := ParseAmountWithTerm(s)
		return ok
	}},
	{Name: "option_reference", Match: func(s string) bool {
		return parseOptionRef(s) > 0
	}},
	{Name: "greeting_or_ack", Match: isGreeting},
	{Name: "lead_data", Match: looksLikeLeadData},
	{Name: "financing_vocab", Match: hasFinancingVocab},
}

// Analyze runs every parser and bypass rule over one inbound message.
func Analyze(text string) Signals {
	norm := Normalize(text)
	sig := Signals{Normalized: norm}

	if amount, term, inferred, ok := ParseAmountWithTerm(norm); ok {
		sig.Amount, sig.HasAmount = amount, true
		sig.Term, sig.HasTerm = term, true
		sig.AmountInferred = inferred
	} else if amount, ok := ParseAmount(norm); ok {
		sig.Amount, sig.HasAmount = amount, true
	}
	sig.OptionRef = parseOptionRef(norm)
	sig.Greeting = isGreeting(norm)
	sig.LeadData = looksLikeLeadData(norm)
	sig.FinancingVocab = hasFinancingVocab(norm)

	for _, rule := range BypassRules {
		if rule.Match(norm) {
			sig.Bypass = true
			sig.Reason = rule.Name
			break
		}
	}
	return sig
}

// HasContactMarker reports explicit contact framing: an email, the word
// "rut", a hand-off marker or a name introduction. Digits inside such a
// message are contact data even when they would parse as money.
func HasContactMarker(norm string) bool {
	if strings.Contains(norm, "@") || reRUTWord.MatchString(norm) {
		return true
	}
	for _, marker := range handoffMarkers {
		if strings.Contains(norm, marker) {
			return true
		}
	}
	for _, prefix := range []string{"me llamo ", "mi nombre es "} {
		if strings.HasPrefix(norm, prefix) {
			return true
		}
	}
	return false
}

func parseOptionRef(norm string) int {
	m := reOptionRef.FindStringSubmatch(norm)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g != "" {
			n := 0
			for _, r := range g {
				n = n*10 + int(r-'0')
			}
			if n >= 1 && n <= 20 {
				return n
			}
			return 0
		}
	}
	return 0
}

// isGreeting accepts very short non-numeric tokens: at most 20 chars, at
// least 80% letters/space/punctuation, or a known greeting word.
func isGreeting(norm string) bool {
	if norm == "" || len(norm) > 20 || reDigits.MatchString(norm) || strings.Contains(norm, "@") {
		return false
	}
	for _, w := range greetingWords {
		if norm == w || strings.HasPrefix(norm, w+" ") {
			return true
		}
	}
	letters := 0
	for _, r := range norm {
		if isLetterSpacePunct(r) {
			letters++
		}
	}
	return float64(letters) >= 0.8*float64(len([]rune(norm)))
}

func isLetterSpacePunct(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r == 'ñ', r == ' ':
		return true
	case r == '.' || r == ',' || r == '!' || r == '?' || r == '¿' || r == '¡':
		return true
	}
	return false
}

// looksLikeLeadData detects contact payloads: emails, RUT-shaped digit
// strings, hand-off markers and short mostly-alphabetic name sequences.
func looksLikeLeadData(norm string) bool {
	if strings.Contains(norm, "@") && strings.Contains(norm, ".") {
		return true
	}
	if m := reRUTShaped.FindString(norm); m != "" {
		cleaned := strings.Map(keepDigit, m)
		if n := len(cleaned); n >= 7 && n <= 12 {
			return true
		}
	}
	for _, marker := range handoffMarkers {
		if strings.Contains(norm, marker) {
			return true
		}
	}
	return looksLikeName(norm)
}

var nameStopwords = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "un": true, "una": true,
	"de": true, "del": true, "que": true, "me": true, "te": true, "se": true,
	"es": true, "y": true, "o": true, "en": true, "no": true, "si": true,
	"gusta": true, "quiero": true, "busco": true, "tengo": true,
}

// looksLikeName accepts the shape of "me llamo Ana Soto", or a bare 2-4 word
// alphabetic sequence with no common sentence words, the way a customer types
// a full name after being asked for contact data.
func looksLikeName(norm string) bool {
	s := norm
	prefixed := false
	for _, prefix := range []string{"me llamo ", "mi nombre es ", "soy "} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			prefixed = true
			break
		}
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 || len(s) > 60 {
		return false
	}
	for _, w := range words {
		if !prefixed && nameStopwords[w] {
			return false
		}
		for _, r := range w {
			if !(r >= 'a' && r <= 'z' || r == 'ñ') {
				return false
			}
		}
	}
	return true
}

func hasFinancingVocab(norm string) bool {
	for _, w := range financingWords {
		if strings.Contains(norm, w) {
			return true
		}
	}
	return false
}
