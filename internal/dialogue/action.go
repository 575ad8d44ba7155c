// Package dialogue is the negotiation state machine: given tracked thread
// state and the newest message signals it decides the next move as a tagged
// action. It never talks to storage or the model itself; the orchestrator
// executes whatever it returns.
package dialogue

// DefaultCeiling is the generous price ceiling used when a customer gave a
// down payment but no budget, so a search never fails closed.
const DefaultCeiling int64 = 55_000_000

// Action is one decided next move for a turn.
type Action interface{ isAction() }

// AskAmountRole asks whether a bare amount is a down payment or a total
// budget. Fired only when no list has been shown yet; guessing is forbidden.
type AskAmountRole struct {
	Amount int64
}

// AskMode asks whether the purchase is cash or financed.
type AskMode struct{}

// AskAmount asks for the missing money figure for the known payment mode:
// the budget for cash, the down payment for financing.
type AskAmount struct {
	Financed bool
}

// QuoteShownList treats a bare amount as a down payment against the vehicles
// just shown: quote each one, never re-search.
type QuoteShownList struct {
	DownPayment int64
}

// ResolveOption picks the Nth vehicle from the last shown list.
type ResolveOption struct {
	N int
}

// AdjustTerm recomputes the current quote at a different term after an
// installment objection. The new term is always disclosed.
type AdjustTerm struct {
	Plazo int
}

// Search runs the inventory planner with the current qualification state.
type Search struct{}

// ClarifyFragment echoes back a parsed amount (and term, when present) from
// an otherwise off-topic financing fragment.
type ClarifyFragment struct {
	Amount int64
	Term   int
}

// Deflect answers an off-topic message with the standard redirection.
type Deflect struct{}

// Goodbye closes the thread politely after three consecutive off-topic
// turns. The thread itself stays usable; the customer may return.
type Goodbye struct{}

// Delegate hands the turn to the language model with current state as
// context.
type Delegate struct{}

func (AskAmountRole) isAction()  {}
func (AskMode) isAction()        {}
func (AskAmount) isAction()      {}
func (QuoteShownList) isAction() {}
func (ResolveOption) isAction()  {}
func (AdjustTerm) isAction()     {}
func (Search) isAction()         {}
func (ClarifyFragment) isAction() {}
func (Deflect) isAction()        {}
func (Goodbye) isAction()        {}
func (Delegate) isAction()       {}
