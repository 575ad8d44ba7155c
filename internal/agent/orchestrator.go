// Package agent runs one conversational turn end to end: topic gating,
// deterministic dialogue policy, tool-equipped model delegation and state
// checkpointing.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	einoagent "github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/agente-usados/server/internal/conversation"
	errx "github.com/agente-usados/server/internal/core/error"
	"github.com/agente-usados/server/internal/dialogue"
	"github.com/agente-usados/server/internal/faq"
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/intent"
	"github.com/agente-usados/server/internal/leads"
	"github.com/agente-usados/server/internal/stock"
	logx "github.com/agente-usados/server/pkg/logger"
)

// Fixed user-facing texts. Kept as constants so tests can assert the exact
// turn outcome.
const (
	emptyMessageReply = "Por favor escribe tu pregunta o lo que buscas en un auto."
	deflectReply      = "Soy un asesor de ventas de automóviles. Solo puedo ayudarte con temas de autos: búsqueda, precios, marcas, modelos, etc. ¿En qué puedo ayudarte con tu próximo auto?"
	goodbyeReply      = "Parece que hoy no estás buscando auto, ¡no hay problema! Cuando quieras cotizar un usado, aquí estaré. ¡Que estés muy bien!"
	upstreamReply     = "Disculpa, tuve un problema técnico para responderte. ¿Puedes intentarlo de nuevo en un momento?"
)

// Orchestrator wires the per-turn pipeline over its collaborators. All of
// them are constructed once at process start and injected here.
type Orchestrator struct {
	repo       conversation.Repository
	stock      *stock.Repository
	leads      *leads.Store
	faqCache   *faq.Cache
	engine     *finance.Engine
	classifier *intent.Classifier

	agent     *react.Agent
	callbacks einocb.Handler

	locks keyedMutex
}

// Options carries the collaborators for NewOrchestrator.
type Options struct {
	Repo     conversation.Repository
	Stock    *stock.Repository
	Leads    *leads.Store
	FAQ      *faq.Cache
	Engine   *finance.Engine
	Models   *ChatModels
	MaxSteps int
}

// NewOrchestrator builds the react agent over the declared tool set and
// returns a ready turn processor.
func NewOrchestrator(ctx context.Context, opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		repo:     opts.Repo,
		stock:    opts.Stock,
		leads:    opts.Leads,
		faqCache: opts.FAQ,
		engine:   opts.Engine,
	}
	o.locks.init()

	if opts.Models == nil {
		// Tests run the deterministic paths without a model; Delegate then
		// degrades to a generic prompt.
		o.classifier = intent.NewClassifier(nil)
		return o, nil
	}
	o.classifier = intent.NewClassifier(opts.Models.Topic)
	o.callbacks = NewCallbacks(opts.Models.SalesModelName)

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 12
	}
	tools := newTools(toolDeps{stock: opts.Stock, leads: opts.Leads, engine: opts.Engine})
	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: opts.Models.Sales,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
		MaxStep:          maxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("build react agent: %w", err)
	}
	o.agent = ra
	return o, nil
}

// Chat processes one inbound message for a thread and returns the reply.
// Turns for the same thread are serialized; different threads run in
// parallel.
func (o *Orchestrator) Chat(ctx context.Context, threadID, message string) (string, error) {
	unlock := o.locks.lock(threadID)
	defer unlock()

	if strings.TrimSpace(message) == "" {
		return emptyMessageReply, nil
	}

	sig := intent.Analyze(message)
	onTopic := sig.Bypass || o.classifier.IsAutomotive(ctx, message)

	state, err := o.repo.LoadState(ctx, threadID)
	if err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("State load failed")
		return upstreamReply, nil
	}

	// Shared answers only for stateless questions; anything tied to this
	// thread's qualification must be computed.
	cacheable := onTopic && o.faqCache != nil && isStateless(state, sig)
	if cacheable {
		if answer, ok := o.faqCache.Get(ctx, message); ok {
			o.record(ctx, threadID, message, answer)
			return answer, nil
		}
	}

	action := dialogue.Decide(state, sig, onTopic)
	reply, err := o.execute(ctx, threadID, state, message, action)
	if err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("Turn failed")
		reply = errorReply(err)
	}

	o.record(ctx, threadID, message, reply)
	if err := o.repo.SaveState(ctx, threadID, state); err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("State save failed")
	}
	if cacheable && err == nil {
		if _, delegated := action.(dialogue.Delegate); delegated {
			if cerr := o.faqCache.Put(ctx, message, reply); cerr != nil {
				logx.Warn().Err(cerr).Msg("FAQ cache write failed")
			}
		}
	}
	return reply, nil
}

// execute turns a policy action into response text, mutating state where the
// action implies it (shown list, phase).
func (o *Orchestrator) execute(ctx context.Context, threadID string, state *conversation.State, message string, action dialogue.Action) (string, error) {
	switch a := action.(type) {
	case dialogue.AskAmountRole:
		return fmt.Sprintf(
			"¿Esos %s serían para el pie si vas a financiar, o es hasta cuánto quieres pagar por el auto en total?",
			stock.FormatPesos(a.Amount)), nil

	case dialogue.AskMode:
		return "¿Piensas pagar al contado o con financiamiento?", nil

	case dialogue.AskAmount:
		if a.Financed {
			return "Perfecto. ¿Cuánto tienes pensado dar de pie?", nil
		}
		return "¿Hasta cuánto quieres pagar por el auto?", nil

	case dialogue.ClarifyFragment:
		return fmt.Sprintf(
			"¿Te refieres a %s de pie en %d cuotas? Si es así, te busco opciones con ese financiamiento.",
			stock.FormatPesos(a.Amount), a.Term), nil

	case dialogue.Deflect:
		return deflectReply, nil

	case dialogue.Goodbye:
		return goodbyeReply, nil

	case dialogue.QuoteShownList:
		return o.quoteShownList(state, a.DownPayment)

	case dialogue.ResolveOption:
		return o.resolveOption(ctx, state, a.N)

	case dialogue.AdjustTerm:
		return o.adjustTerm(state, a.Plazo)

	case dialogue.Search:
		return o.search(ctx, state)

	case dialogue.Delegate:
		return o.delegate(ctx, threadID, state, message)

	default:
		return "", fmt.Errorf("unhandled action %T", action)
	}
}

// quoteShownList computes a quote per shown vehicle with the stated down
// payment. It never re-searches.
func (o *Orchestrator) quoteShownList(state *conversation.State, pie int64) (string, error) {
	if len(state.LastShown) == 0 {
		return "", fmt.Errorf("quote requested with no shown list")
	}
	plazo := finance.NormalizePlazo(state.Plazo)
	state.Plazo = plazo

	var b strings.Builder
	fmt.Fprintf(&b, "Con %s de pie, estas quedarían así:\n", stock.FormatPesos(pie))
	for i, v := range state.LastShown {
		q, err := o.engine.Quote(v.Precio, pie, plazo)
		if err != nil {
			// One degenerate vehicle must not sink the whole list.
			logx.Warn().Err(err).Str("modelo", v.Modelo).Msg("Quote skipped for shown vehicle")
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, stock.FormatVehicle(v), FormatQuote(q))
	}
	b.WriteString("¿Alguna de estas opciones te acomoda?")
	state.Phase = conversation.PhaseOffered
	return b.String(), nil
}

// resolveOption answers with the exact Nth vehicle of the last shown list,
// re-issuing the identical search only if the cached snapshot is gone.
func (o *Orchestrator) resolveOption(ctx context.Context, state *conversation.State, n int) (string, error) {
	shown := state.LastShown
	if len(shown) == 0 {
		results, err := o.stock.Search(ctx, o.plannerFilters(state))
		if err != nil {
			return "", err
		}
		shown = results
		state.LastShown = results
	}
	if n < 1 || n > len(shown) {
		return fmt.Sprintf(
			"En la última lista te mostré %d opciones. ¿Cuál de ellas te interesa?",
			len(shown)), nil
	}
	v := shown[n-1]
	state.SelectedOption = n

	var b strings.Builder
	fmt.Fprintf(&b, "¡Buena elección! La opción %d es: %s\n", n, stock.FormatVehicle(v))
	if state.PaymentMode == conversation.PaymentFinanciado && state.DownPayment > 0 {
		plazo := finance.NormalizePlazo(state.Plazo)
		state.Plazo = plazo
		q, err := o.engine.Quote(v.Precio, state.DownPayment, plazo)
		if err == nil {
			b.WriteString(FormatQuote(q))
			b.WriteString(" ¿Qué tal la cuota?")
			return b.String(), nil
		}
	}
	b.WriteString("¿Quieres que te calcule el financiamiento, o prefieres agendar una visita? Si me dejas tu nombre y correo o RUT, un ejecutivo te contacta.")
	return b.String(), nil
}

// adjustTerm recomputes the quote for the vehicle under discussion at the
// new term, always disclosing it.
func (o *Orchestrator) adjustTerm(state *conversation.State, plazo int) (string, error) {
	if len(state.LastShown) == 0 || state.DownPayment == 0 {
		return "", fmt.Errorf("term adjustment with no active quote")
	}
	idx := state.SelectedOption
	if idx < 1 || idx > len(state.LastShown) {
		idx = 1
	}
	v := state.LastShown[idx-1]
	q, err := o.engine.Quote(v.Precio, state.DownPayment, plazo)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Te queda en %s en un plazo de %d meses para el %s %s. ¿Qué te parece?",
		stock.FormatPesos(q.Cuota), q.Plazo, v.Marca, v.Modelo), nil
}

// plannerFilters builds the search request from state. Financed searches
// without an explicit ceiling get one: derived from the desired installment
// when the customer stated one, the house default otherwise.
func (o *Orchestrator) plannerFilters(state *conversation.State) stock.Filters {
	ps := state.PlannerState()
	if state.PaymentMode == conversation.PaymentFinanciado && ps.PrecioMax == 0 {
		ps.PrecioMax = dialogue.DefaultCeiling
		if state.DesiredInstallment > 0 && state.DownPayment > 0 {
			plazo := finance.NormalizePlazo(state.Plazo)
			maxPrecio, err := o.engine.MaxPriceForInstallment(state.DownPayment, state.DesiredInstallment, plazo)
			if err == nil && maxPrecio > 0 && maxPrecio < ps.PrecioMax {
				ps.PrecioMax = maxPrecio
			}
		}
	}
	return stock.Plan(ps)
}

// search runs the planner query, broadening instead of dead-ending when
// nothing matches.
func (o *Orchestrator) search(ctx context.Context, state *conversation.State) (string, error) {
	filters := o.plannerFilters(state)

	results, err := o.stock.Search(ctx, filters)
	if err != nil {
		return "", err
	}
	broadened := false
	if len(results) == 0 {
		// Same sticky filters, no ceiling, cheapest first.
		filters.PrecioMax = 0
		filters.PrecioMin = 0
		filters.Order = stock.OrderAsc
		results, err = o.stock.Search(ctx, filters)
		if err != nil {
			return "", err
		}
		broadened = true
	}
	if len(results) == 0 {
		return "No encontré vehículos con esos criterios. ¿Quieres que busquemos otro tipo de auto o ajustamos algún filtro?", nil
	}

	state.LastShown = results
	state.SelectedOption = 0
	state.Phase = conversation.PhaseOffered

	var b strings.Builder
	if broadened {
		b.WriteString("Con esos montos no encontré opciones exactas, pero esto es lo más económico que tenemos de ese tipo:\n")
	}
	if state.PaymentMode == conversation.PaymentFinanciado && state.DownPayment > 0 {
		plazo := finance.NormalizePlazo(state.Plazo)
		state.Plazo = plazo
		fmt.Fprintf(&b, "Opciones encontradas (con %s de pie):\n", stock.FormatPesos(state.DownPayment))
		for i, v := range results {
			q, qerr := o.engine.Quote(v.Precio, state.DownPayment, plazo)
			if qerr != nil {
				fmt.Fprintf(&b, "%d. %s\n", i+1, stock.FormatVehicle(v))
				continue
			}
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, stock.FormatVehicle(v), FormatQuote(q))
		}
	} else {
		b.WriteString(stock.FormatList(results))
		b.WriteString("\n")
	}
	b.WriteString("¿Te interesa alguna? Dime el número de la opción.")
	return b.String(), nil
}

// delegate hands the turn to the react agent with the persisted history and
// a state summary, so the model negotiates with full context.
func (o *Orchestrator) delegate(ctx context.Context, threadID string, state *conversation.State, message string) (string, error) {
	if o.agent == nil {
		return "Cuéntame qué auto buscas o cuál es tu presupuesto y te ayudo con opciones.", nil
	}

	history, err := o.repo.LoadHistory(ctx, threadID)
	if err != nil {
		return "", err
	}

	msgs := make([]*schema.Message, 0, len(history.Messages)+2)
	msgs = append(msgs, schema.SystemMessage(systemPrompt+stateContext(state)))
	msgs = append(msgs, history.Messages...)
	msgs = append(msgs, schema.UserMessage(message))

	tc := &TurnContext{ThreadID: threadID}
	out, err := o.agent.Generate(withTurn(ctx, tc), msgs,
		einoagent.WithComposeOptions(compose.WithCallbacks(o.callbacks)))
	if err != nil {
		return "", errx.Upstream(err, "model call failed")
	}

	if len(tc.LastShown) > 0 {
		state.LastShown = tc.LastShown
		state.SelectedOption = 0
		state.Phase = conversation.PhaseOffered
	}
	state.Greeted = true

	reply := strings.TrimSpace(out.Content)
	if reply == "" {
		reply = "No pude generar una respuesta. ¿Puedes reformular?"
	}
	return reply, nil
}

// stateContext renders the tracked qualification for the model's system
// message.
func stateContext(state *conversation.State) string {
	var parts []string
	if state.PaymentMode != conversation.PaymentUnknown {
		parts = append(parts, "forma de pago: "+string(state.PaymentMode))
	}
	if state.DownPayment > 0 {
		parts = append(parts, "pie: "+stock.FormatPesos(state.DownPayment))
	}
	if state.BudgetCeiling > 0 {
		parts = append(parts, "presupuesto tope: "+stock.FormatPesos(state.BudgetCeiling))
	}
	if state.DesiredInstallment > 0 {
		parts = append(parts, "cuota deseada: "+stock.FormatPesos(state.DesiredInstallment))
	}
	if state.Segmento != "" {
		parts = append(parts, "segmento: "+state.Segmento)
	}
	if state.Combustible != "" {
		parts = append(parts, "combustible: "+state.Combustible)
	}
	if state.Transmision != "" {
		parts = append(parts, "transmisión: "+state.Transmision)
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\n## Datos ya conocidos de este cliente (no volver a preguntar)\n- " +
		strings.Join(parts, "\n- ")
}

// record appends the turn to the thread history. Failures are logged, not
// surfaced; the reply already exists.
func (o *Orchestrator) record(ctx context.Context, threadID, userMsg, reply string) {
	if err := o.repo.AddMessage(ctx, threadID, schema.UserMessage(userMsg)); err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("History append failed")
		return
	}
	if err := o.repo.AddMessage(ctx, threadID, schema.AssistantMessage(reply, nil)); err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("History append failed")
	}
}

// isStateless reports that the turn does not depend on this thread's
// qualification, so a shared cached answer is safe.
func isStateless(state *conversation.State, sig intent.Signals) bool {
	return state.Phase == conversation.PhaseNew &&
		!state.HasAmount() &&
		!sig.HasAmount && sig.OptionRef == 0 && !sig.LeadData
}

// errorReply maps the error taxonomy to natural-language Spanish; raw error
// text never reaches the customer.
func errorReply(err error) string {
	switch errx.KindOf(err) {
	case errx.KindInputValidation:
		return "No entendí bien ese dato. ¿Me lo puedes repetir?"
	case errx.KindPolicyViolation:
		return "Con ese pie no puedo armar un financiamiento para esas opciones. ¿Quieres ajustar el monto del pie?"
	default:
		return upstreamReply
	}
}

// keyedMutex serializes turns per thread id so duplicate deliveries cannot
// interleave mutations of one thread's state. Entries are reference-counted
// and removed once the last holder releases, so idle threads cost nothing.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) init() {
	k.locks = make(map[string]*threadLock)
}

func (k *keyedMutex) lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &threadLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
