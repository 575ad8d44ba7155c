package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agente-usados/server/internal/stock"
)

func testRepository(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisRepository(rdb, time.Hour), mr
}

func TestHistoryRoundTrip(t *testing.T) {
	repo, _ := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddMessage(ctx, "t1", schema.UserMessage("busco una pickup")))
	require.NoError(t, repo.AddMessage(ctx, "t1", schema.AssistantMessage("Tenemos varias opciones", nil)))

	h, err := repo.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "busco una pickup", h.Messages[0].Content)
	assert.Equal(t, schema.Assistant, h.Messages[1].Role)
}

func TestLoadHistory_FreshThread(t *testing.T) {
	repo, _ := testRepository(t)

	h, err := repo.LoadHistory(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", h.ThreadID)
	assert.Empty(t, h.Messages)
}

func TestStateRoundTrip(t *testing.T) {
	repo, _ := testRepository(t)
	ctx := context.Background()

	state := &State{
		Phase:       PhaseOffered,
		PaymentMode: PaymentFinanciado,
		DownPayment: 7_000_000,
		Segmento:    stock.SegmentoCamioneta,
		LastShown: []stock.Vehicle{
			{Marca: "Nissan", Modelo: "Navara", Precio: 19_990_000},
			{Marca: "Chevrolet", Modelo: "Colorado", Precio: 17_490_000},
		},
	}
	require.NoError(t, repo.SaveState(ctx, "t1", state))

	got, err := repo.LoadState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, PhaseOffered, got.Phase)
	assert.Equal(t, PaymentFinanciado, got.PaymentMode)
	assert.Equal(t, int64(7_000_000), got.DownPayment)
	require.Len(t, got.LastShown, 2)
	assert.Equal(t, "Colorado", got.LastShown[1].Modelo)
}

func TestLoadState_FreshThread(t *testing.T) {
	repo, _ := testRepository(t)

	got, err := repo.LoadState(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, got.Phase)
	assert.False(t, got.HasAmount())
}

func TestLoadState_CorruptedCheckpointStartsOver(t *testing.T) {
	repo, mr := testRepository(t)
	mr.Set("conversation:t1:state", "{not json")

	got, err := repo.LoadState(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, got.Phase)
}

func TestTTLExtendedOnTouch(t *testing.T) {
	repo, mr := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddMessage(ctx, "t1", schema.UserMessage("hola")))
	assert.Equal(t, time.Hour, mr.TTL("conversation:t1:messages"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, repo.AddMessage(ctx, "t1", schema.UserMessage("sigo aqui")))
	assert.Equal(t, time.Hour, mr.TTL("conversation:t1:messages"))
}

func TestClearThread(t *testing.T) {
	repo, mr := testRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddMessage(ctx, "t1", schema.UserMessage("hola")))
	require.NoError(t, repo.SaveState(ctx, "t1", &State{Phase: PhaseOffered}))
	require.NoError(t, repo.ClearThread(ctx, "t1"))

	assert.False(t, mr.Exists("conversation:t1:messages"))
	assert.False(t, mr.Exists("conversation:t1:state"))
}
