package dialogue

import (
	"strings"

	"github.com/agente-usados/server/internal/conversation"
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/intent"
	"github.com/agente-usados/server/internal/stock"
)

// amountRole is the interpreted slot for one raw monetary utterance. Every
// amount gets exactly one role before it is written into state.
type amountRole int

const (
	roleAmbiguous amountRole = iota
	roleDownPayment
	roleCeiling
	roleInstallment
	roleShownList
)

var (
	ceilingWords  = []string{
		"hasta", "presupuesto", "tope", "maximo", "no mas de", "como mucho",
	}
	cashWords     = []string{"contado", "efectivo", "al contado", "cash"}
	financeWords  = []string{"financi", "credito", "en cuotas", "pie"}
	tooHighWords  = []string{"muy alta", "muy cara", "demasiado alta", "demasiado cara", "no me alcanza", "muy alto"}
	tooLowWords   = []string{"muy baja", "muy barata", "puedo pagar mas", "podria pagar mas", "muy bajo"}
	searchIntents = []string{"busco", "quiero", "necesito", "ando buscando", "me interesa", "tienen", "hay "}
	affirmWords   = []string{"si", "dale", "ok", "claro", "exacto", "correcto", "eso", "perfecto"}
	moneyWords    = []string{"millon", "millones", "palo", "palos", "lucas", "mil", "pesos", "pie", "presupuesto"}
)

// Decide merges the newest message's signals into state and returns the next
// action. Off-topic strike handling happens here too, so one call covers the
// whole turn decision.
func Decide(state *conversation.State, sig intent.Signals, onTopic bool) Action {
	if !onTopic {
		if state.RegisterStrike() {
			state.Strikes = 0
			state.Phase = conversation.PhaseClosed
			return Goodbye{}
		}
		return Deflect{}
	}
	state.ClearStrikes()
	if state.Phase == conversation.PhaseClosed {
		state.Phase = conversation.PhaseNew
	}

	state.ApplyFilters(stock.ExtractFilters(sig.Normalized))
	mergeMode(state, sig.Normalized)
	if sig.HasTerm {
		state.Plazo = finance.NormalizePlazo(sig.Term)
	}

	// "Opción N" against the exact last shown list.
	if sig.OptionRef > 0 && len(state.LastShown) > 0 {
		return ResolveOption{N: sig.OptionRef}
	}

	// Installment objections after a quote: change the term, not the car.
	if state.DownPayment > 0 && len(state.LastShown) > 0 && !sig.HasAmount {
		if containsAny(sig.Normalized, tooHighWords) {
			state.Plazo = finance.PlazoLargo
			return AdjustTerm{Plazo: finance.PlazoLargo}
		}
		if containsAny(sig.Normalized, tooLowWords) {
			state.Plazo = finance.PlazoCorto
			return AdjustTerm{Plazo: finance.PlazoCorto}
		}
	}

	// A RUT or phone answering the contact request is digits too; contact
	// framing outranks any parsed figure.
	if sig.LeadData && intent.HasContactMarker(sig.Normalized) && !moneyVocab(sig.Normalized) {
		return Delegate{}
	}

	if sig.HasAmount {
		if a := mergeAmount(state, sig); a != nil {
			return a
		}
	} else if state.PendingAmount > 0 {
		if a := resolvePendingRole(state, sig.Normalized); a != nil {
			return a
		}
	}

	// Contact data goes through the model, which extracts the fields and
	// registers the lead.
	if sig.LeadData {
		return Delegate{}
	}

	return nextStep(state, sig)
}

// mergeAmount classifies the raw amount into exactly one role, writes it into
// state, and returns an immediate action when the role demands one.
func mergeAmount(state *conversation.State, sig intent.Signals) Action {
	amount := sig.Amount

	// "5 en 36" reads the 5 as millions only by convention; park it and
	// confirm before anything is written into the money slots.
	if sig.AmountInferred && !state.HasAmount() && len(state.LastShown) == 0 {
		state.PendingAmount = amount
		state.Phase = conversation.PhaseNeedMode
		return ClarifyFragment{Amount: amount, Term: sig.Term}
	}

	role := classifyAmount(state, sig)

	switch role {
	case roleDownPayment:
		state.PaymentMode = conversation.PaymentFinanciado
		state.DownPayment = amount
		state.PendingAmount = 0
	case roleCeiling:
		state.BudgetCeiling = amount
		state.PendingAmount = 0
	case roleInstallment:
		state.PaymentMode = conversation.PaymentFinanciado
		state.DesiredInstallment = amount
		state.PendingAmount = 0
	case roleShownList:
		// Re-searching with this as a ceiling would likely yield nothing.
		state.PaymentMode = conversation.PaymentFinanciado
		state.DownPayment = amount
		state.PendingAmount = 0
		return QuoteShownList{DownPayment: amount}
	case roleAmbiguous:
		state.PendingAmount = amount
		state.Phase = conversation.PhaseNeedMode
		return AskAmountRole{Amount: amount}
	}
	return nil
}

func classifyAmount(state *conversation.State, sig intent.Signals) amountRole {
	norm := sig.Normalized

	if containsWord(norm, "pie") {
		return roleDownPayment
	}
	if strings.Contains(norm, "cuota") || strings.Contains(norm, "mensual") {
		// "una cuota de 300 mil": small figures next to installment vocab
		// are the desired monthly payment, not a price.
		if sig.Amount < 3_000_000 {
			return roleInstallment
		}
	}
	if containsAny(norm, ceilingWords) {
		return roleCeiling
	}
	// "7 millones en 36" is the down-payment-plus-term shorthand.
	if sig.HasTerm {
		return roleDownPayment
	}
	if state.Phase == conversation.PhaseOffered && len(state.LastShown) > 0 {
		return roleShownList
	}
	if state.PaymentMode == conversation.PaymentContado {
		return roleCeiling
	}
	if state.PaymentMode == conversation.PaymentFinanciado {
		return roleDownPayment
	}
	// No context at all: ask, never guess.
	return roleAmbiguous
}

// resolvePendingRole assigns a previously parked amount once the customer
// names its role without repeating the figure.
func resolvePendingRole(state *conversation.State, norm string) Action {
	if containsWord(norm, "pie") || containsAny(norm, financeWords) {
		state.PaymentMode = conversation.PaymentFinanciado
		state.DownPayment = state.PendingAmount
		state.PendingAmount = 0
		return nil
	}
	if containsAny(norm, ceilingWords) || containsAny(norm, cashWords) || containsWord(norm, "total") {
		if containsAny(norm, cashWords) {
			state.PaymentMode = conversation.PaymentContado
		}
		state.BudgetCeiling = state.PendingAmount
		state.PendingAmount = 0
		return nil
	}
	// The amount was parked together with a term ("5 en 36"); a plain
	// affirmation confirms it as the down payment.
	if state.Plazo > 0 && isAffirmation(norm) {
		state.PaymentMode = conversation.PaymentFinanciado
		state.DownPayment = state.PendingAmount
		state.PendingAmount = 0
		return nil
	}
	return nil
}

func mergeMode(state *conversation.State, norm string) {
	if containsAny(norm, cashWords) {
		state.PaymentMode = conversation.PaymentContado
	} else if containsAny(norm, financeWords) {
		state.PaymentMode = conversation.PaymentFinanciado
	}
}

// nextStep walks the qualification ladder: mode, then money, then search.
func nextStep(state *conversation.State, sig intent.Signals) Action {
	switch state.PaymentMode {
	case conversation.PaymentUnknown:
		if state.PendingAmount > 0 {
			return AskAmountRole{Amount: state.PendingAmount}
		}
		// An explicit ceiling is enough to search on even before the
		// cash-vs-financing question is settled.
		if state.BudgetCeiling == 0 {
			if wantsVehicle(state, sig) {
				state.Phase = conversation.PhaseNeedMode
				return AskMode{}
			}
			return Delegate{}
		}

	case conversation.PaymentContado:
		if state.BudgetCeiling == 0 {
			state.Phase = conversation.PhaseNeedAmount
			return AskAmount{Financed: false}
		}

	case conversation.PaymentFinanciado:
		if state.DownPayment == 0 {
			state.Phase = conversation.PhaseNeedAmount
			return AskAmount{Financed: true}
		}
	}

	if readyToSearch(state, sig) {
		state.Phase = conversation.PhaseReadySearch
		return Search{}
	}
	return Delegate{}
}

// wantsVehicle reports that the message expresses purchase intent: a vehicle
// filter was stated or a search verb used.
func wantsVehicle(state *conversation.State, sig intent.Signals) bool {
	if state.Segmento != "" || state.Combustible != "" || state.Transmision != "" {
		return true
	}
	return containsAny(sig.Normalized, searchIntents) &&
		(strings.Contains(sig.Normalized, "auto") || strings.Contains(sig.Normalized, "vehiculo") ||
			strings.Contains(sig.Normalized, "camioneta") || strings.Contains(sig.Normalized, "comprar"))
}

// readyToSearch fires when qualification is complete or the customer changed
// a constraint after a list was already shown.
func readyToSearch(state *conversation.State, sig intent.Signals) bool {
	if state.Phase == conversation.PhaseOffered {
		// A new filter or amount on an offered thread means "show me again".
		return sig.HasAmount || stock.ExtractFilters(sig.Normalized) != (stock.ExtractedFilters{})
	}
	return state.HasAmount()
}

// moneyVocab reports that the message talks about money explicitly, not just
// digits that happen to parse.
func moneyVocab(norm string) bool {
	for _, w := range moneyWords {
		if containsWord(norm, w) {
			return true
		}
	}
	return strings.Contains(norm, "$") || strings.Contains(norm, "cuota")
}

func isAffirmation(norm string) bool {
	if containsWord(norm, "no") {
		return false
	}
	for _, w := range affirmWords {
		if containsWord(norm, w) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord is a whole-word match, so "pie" does not fire inside
// "propietario".
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordRune(s[start-1])
		afterOK := end == len(s) || !isWordRune(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordRune(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
