package agent

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agente-usados/server/internal/conversation"
	"github.com/agente-usados/server/internal/dialogue"
	"github.com/agente-usados/server/internal/faq"
	"github.com/agente-usados/server/internal/finance"
	"github.com/agente-usados/server/internal/leads"
	"github.com/agente-usados/server/internal/stock"
)

func testOrchestrator(t *testing.T) (*Orchestrator, conversation.Repository) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := conversation.NewRedisRepository(rdb, time.Hour)

	stockRepo, err := stock.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { stockRepo.Close() })
	_, err = stockRepo.ReplaceAll(context.Background(), []stock.Vehicle{
		{Marca: "Nissan", Modelo: "Navara", Anio: 2021, Precio: 19_990_000, Combustible: "Diesel", Segmento: stock.SegmentoCamioneta},
		{Marca: "Chevrolet", Modelo: "Colorado", Anio: 2020, Precio: 17_490_000, Combustible: "Diesel", Segmento: stock.SegmentoCamioneta},
		{Marca: "Peugeot", Modelo: "Landtrek", Anio: 2022, Precio: 21_990_000, Combustible: "Diesel", Segmento: stock.SegmentoCamioneta},
		{Marca: "MG", Modelo: "3", Anio: 2022, Precio: 7_490_000, Combustible: "Gasolina", Segmento: stock.SegmentoCityCar},
	})
	require.NoError(t, err)

	leadStore, err := leads.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { leadStore.Close() })

	o, err := NewOrchestrator(context.Background(), Options{
		Repo:   repo,
		Stock:  stockRepo,
		Leads:  leadStore,
		FAQ:    faq.New(rdb, time.Hour),
		Engine: finance.NewEngine(finance.Config{MonthlyRate: 0.019}),
	})
	require.NoError(t, err)
	return o, repo
}

func TestChat_EmptyMessage(t *testing.T) {
	o, _ := testOrchestrator(t)

	reply, err := o.Chat(context.Background(), "t1", "   ")
	require.NoError(t, err)
	assert.Equal(t, emptyMessageReply, reply)
}

func TestChat_QualificationToSearch(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	reply, err := o.Chat(ctx, "t1", "busco pickup")
	require.NoError(t, err)
	assert.Contains(t, reply, "contado o con financiamiento")

	reply, err = o.Chat(ctx, "t1", "hasta 30 millones")
	require.NoError(t, err)
	assert.Contains(t, reply, "Navara")
	assert.Contains(t, reply, "Colorado")
	assert.NotContains(t, reply, "MG 3", "city cars must not leak into a pickup search")

	state, err := repo.LoadState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, conversation.PhaseOffered, state.Phase)
	require.Len(t, state.LastShown, 3)
	assert.Equal(t, "Landtrek", state.LastShown[0].Modelo, "descending price toward the ceiling")
}

func TestChat_BareAmountAfterListQuotesWithoutResearch(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "busco pickup")
	o.Chat(ctx, "t1", "hasta 30 millones")

	reply, err := o.Chat(ctx, "t1", "tengo 7 millones")
	require.NoError(t, err)
	assert.Contains(t, reply, "de pie")
	assert.Contains(t, reply, "Cuota:")

	// The shown list must be intact: same three pickups, no re-search with a
	// 7M ceiling (which would have matched nothing).
	state, err := repo.LoadState(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, state.LastShown, 3)
	assert.Equal(t, int64(7_000_000), state.DownPayment)
}

func TestChat_OptionSelectionAndTermAdjustment(t *testing.T) {
	o, _ := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "busco pickup")
	o.Chat(ctx, "t1", "hasta 30 millones")
	o.Chat(ctx, "t1", "tengo 7 millones")

	reply, err := o.Chat(ctx, "t1", "me interesa la opcion 2")
	require.NoError(t, err)
	assert.Contains(t, reply, "opción 2")
	assert.Contains(t, reply, "Navara")

	reply, err = o.Chat(ctx, "t1", "la cuota esta muy alta")
	require.NoError(t, err)
	assert.Contains(t, reply, "48 meses")
	assert.Contains(t, reply, "Navara")
}

func TestChat_DownPaymentOnlySearchesWithFloor(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "quiero financiar una camioneta")
	reply, err := o.Chat(ctx, "t1", "tengo 9 millones de pie")
	require.NoError(t, err)

	// 2 x 9M floor keeps the 17.49M Colorado out but not the 19.99M Navara.
	assert.Contains(t, reply, "Navara")
	assert.Contains(t, reply, "Landtrek")
	assert.NotContains(t, reply, "Colorado")

	state, err := repo.LoadState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, conversation.PhaseOffered, state.Phase)
}

func TestChat_InstallmentCapsTheSearchCeiling(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "quiero financiar una camioneta")
	o.Chat(ctx, "t1", "tengo 7 millones de pie")

	reply, err := o.Chat(ctx, "t1", "me acomoda una cuota de 500 mil mensual")
	require.NoError(t, err)

	// 500k at 36 months over a 7M pie affords roughly 19.9M; only the
	// Colorado fits. Without the derived ceiling the 21.99M Landtrek would
	// come back at a far higher installment than the customer named.
	assert.Contains(t, reply, "Colorado")
	assert.NotContains(t, reply, "Landtrek")
	assert.NotContains(t, reply, "Navara")

	state, err := repo.LoadState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), state.DesiredInstallment)
	require.Len(t, state.LastShown, 1)
}

func TestPlannerFilters_FinancedCeilings(t *testing.T) {
	o, _ := testOrchestrator(t)

	state := &conversation.State{
		PaymentMode: conversation.PaymentFinanciado,
		DownPayment: 7_000_000,
		Segmento:    stock.SegmentoCamioneta,
	}

	f := o.plannerFilters(state)
	assert.Equal(t, dialogue.DefaultCeiling, f.PrecioMax)
	assert.Equal(t, int64(14_000_000), f.PrecioMin)

	state.DesiredInstallment = 500_000
	state.Plazo = 36
	f = o.plannerFilters(state)
	assert.Less(t, f.PrecioMax, dialogue.DefaultCeiling, "a stated installment must tighten the ceiling")
	assert.Greater(t, f.PrecioMax, state.DownPayment)
}

func TestResolveOption_RecoversListWithTheSameSearch(t *testing.T) {
	o, _ := testOrchestrator(t)

	state := &conversation.State{
		Phase:       conversation.PhaseOffered,
		PaymentMode: conversation.PaymentFinanciado,
		DownPayment: 7_000_000,
		Segmento:    stock.SegmentoCamioneta,
	}

	reply, err := o.resolveOption(context.Background(), state, 2)
	require.NoError(t, err)

	// The re-issued query carries the same financed bounds search() uses:
	// three pickups descending, so option 2 is the Navara.
	require.Len(t, state.LastShown, 3)
	assert.Contains(t, reply, "Navara")
	assert.Equal(t, 2, state.SelectedOption)
}

func TestChat_EmptySearchBroadensInsteadOfDeadEnding(t *testing.T) {
	o, _ := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "busco un city car al contado")
	reply, err := o.Chat(ctx, "t1", "hasta 6 millones")
	require.NoError(t, err)

	// Nothing under 6M; the cheapest city car is offered instead of "no hay".
	assert.Contains(t, reply, "MG 3")
	assert.NotContains(t, reply, "No encontré")
}

func TestChat_StatePersistsAcrossOrchestratorRestart(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	o.Chat(ctx, "t1", "busco pickup")
	o.Chat(ctx, "t1", "hasta 30 millones")

	// A second orchestrator over the same repo sees the same thread.
	o2, err := NewOrchestrator(ctx, Options{
		Repo: repo, Stock: o.stock, Leads: o.leads, Engine: o.engine,
	})
	require.NoError(t, err)

	reply, err := o2.Chat(ctx, "t1", "la 1")
	require.NoError(t, err)
	assert.Contains(t, reply, "Landtrek")
}

func TestChat_ConcurrentTurnsSameThreadAreSerialized(t *testing.T) {
	o, repo := testOrchestrator(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Chat(ctx, "t1", "busco pickup")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	h, err := repo.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, h.Messages, 16)

	// Released thread locks must not accumulate.
	o.locks.mu.Lock()
	assert.Empty(t, o.locks.locks)
	o.locks.mu.Unlock()
}

func TestFormatQuote_DisclosesAdjustment(t *testing.T) {
	engine := finance.NewEngine(finance.Config{MonthlyRate: 0.019})

	q, err := engine.Quote(20_000_000, 15_000_000, 36)
	require.NoError(t, err)

	text := FormatQuote(q)
	assert.Contains(t, text, "36 meses")
	assert.Contains(t, text, "$10.000.000")
	assert.True(t, strings.Contains(text, "se ajustó"), "clamped pie must be explained")
}
