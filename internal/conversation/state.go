// Package conversation persists per-thread dialogue data in Redis: the raw
// message history and the qualification state the policy engine works from.
// Both survive process restarts, so a customer can resume "la 2" hours later.
package conversation

import (
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/stock"
)

// PaymentMode is how the customer intends to pay.
type PaymentMode string

const (
	PaymentUnknown    PaymentMode = ""
	PaymentContado    PaymentMode = "contado"
	PaymentFinanciado PaymentMode = "financiado"
)

// Phase is where the qualification flow stands for a thread.
type Phase string

const (
	PhaseNew         Phase = "new"
	PhaseNeedMode    Phase = "need_mode"
	PhaseNeedAmount  Phase = "need_amount"
	PhaseNeedTarget  Phase = "need_target"
	PhaseReadySearch Phase = "ready_search"
	PhaseOffered     Phase = "offered"
	PhaseClosed      Phase = "closed"
)

// MaxStrikes is the consecutive off-topic limit before the thread is ended
// politely.
const MaxStrikes = 3

// State is the tracked qualification of one thread. It accretes across
// turns: a budget or vehicle preference stated once stays in force until the
// customer changes it.
type State struct {
	Phase       Phase       `json:"phase"`
	PaymentMode PaymentMode `json:"payment_mode"`

	// Money, in whole pesos. BudgetCeiling is the cash budget (contado) or
	// the derived max price (financiado). DownPayment is the pie.
	BudgetCeiling      int64 `json:"budget_ceiling,omitempty"`
	DownPayment        int64 `json:"down_payment,omitempty"`
	DesiredInstallment int64 `json:"desired_installment,omitempty"`
	Plazo              int   `json:"plazo,omitempty"`

	// PendingAmount is a raw amount whose role (pie vs ceiling) is still
	// unresolved; the next turn's answer assigns it.
	PendingAmount int64 `json:"pending_amount,omitempty"`

	// Sticky vehicle filters.
	Segmento           string `json:"segmento,omitempty"`
	Combustible        string `json:"combustible,omitempty"`
	Transmision        string `json:"transmision,omitempty"`
	ExcludeMarca       string `json:"exclude_marca,omitempty"`
	ExcludeModelo      string `json:"exclude_modelo,omitempty"`
	ExcludeCombustible string `json:"exclude_combustible,omitempty"`

	// LastShown is the exact numbered list from the most recent search, so
	// "la 2" resolves to the same vehicle the customer saw. SelectedOption is
	// the 1-based position the customer picked from it, zero when none.
	LastShown      []stock.Vehicle `json:"last_shown,omitempty"`
	SelectedOption int             `json:"selected_option,omitempty"`

	Strikes        int  `json:"strikes,omitempty"`
	Greeted        bool `json:"greeted,omitempty"`
	LeadRegistered bool `json:"lead_registered,omitempty"`
}

// ApplyFilters merges newly extracted filter words into the sticky state.
// Only non-empty extractions overwrite; silence keeps the previous value.
func (s *State) ApplyFilters(f stock.ExtractedFilters) {
	if f.Segmento != "" {
		s.Segmento = f.Segmento
	}
	if f.Combustible != "" {
		s.Combustible = f.Combustible
	}
	if f.Transmision != "" {
		s.Transmision = f.Transmision
	}
	if f.ExcludeMarca != "" {
		s.ExcludeMarca = f.ExcludeMarca
	}
	if f.ExcludeModelo != "" {
		s.ExcludeModelo = f.ExcludeModelo
	}
	if f.ExcludeCombustible != "" {
		s.ExcludeCombustible = f.ExcludeCombustible
		if s.Combustible == f.ExcludeCombustible {
			s.Combustible = ""
		}
	}
}

// PlannerState projects the tracked state onto a search request.
func (s *State) PlannerState() stock.PlannerState {
	ps := stock.PlannerState{
		Segmento:           s.Segmento,
		Combustible:        s.Combustible,
		Transmision:        s.Transmision,
		ExcludeMarca:       s.ExcludeMarca,
		ExcludeModelo:      s.ExcludeModelo,
		ExcludeCombustible: s.ExcludeCombustible,
		Order:              stock.OrderDesc,
	}
	if s.BudgetCeiling > 0 {
		ps.PrecioMax = s.BudgetCeiling
	}
	if s.PaymentMode == PaymentFinanciado && s.DownPayment > 0 {
		// The down payment caps at half the price, so precio >= 2 * pie.
		ps.PrecioMin = finance.MinPrecioForPie(s.DownPayment)
	}
	return ps
}

// HasAmount reports whether the customer has given any monetary anchor.
func (s *State) HasAmount() bool {
	return s.BudgetCeiling > 0 || s.DownPayment > 0 || s.DesiredInstallment > 0
}

// RegisterStrike counts one consecutive off-topic turn and reports whether
// the limit was reached.
func (s *State) RegisterStrike() bool {
	s.Strikes++
	return s.Strikes >= MaxStrikes
}

// ClearStrikes resets the off-topic counter after an automotive turn.
func (s *State) ClearStrikes() {
	s.Strikes = 0
}
