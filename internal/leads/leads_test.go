package leads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegister_EmptyNameFailsValidation(t *testing.T) {
	s := testStore(t)

	res, err := s.Register(context.Background(), Lead{Nombre: "   ", RUT: "12345678"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Message)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegister_NameWithRutOnly(t *testing.T) {
	s := testStore(t)

	res, err := s.Register(context.Background(), Lead{Nombre: "Ana", RUT: "12345678", Email: ""})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Message, "Ana")
}

func TestRegister_AppendOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	lead := Lead{Nombre: "Ana Soto", Email: "ana.soto@gmail.com", ThreadID: "t1"}
	for i := 0; i < 2; i++ {
		res, err := s.Register(ctx, lead)
		require.NoError(t, err)
		assert.True(t, res.OK)
	}

	// Same contact twice means two records, never an update.
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegister_TradeInFields(t *testing.T) {
	s := testStore(t)

	res, err := s.Register(context.Background(), Lead{
		Nombre:           "Pedro Rojas",
		RUT:              "9876543-2",
		PartePagoPatente: "ABCD12",
		PartePagoKm:      85_000,
		Notas:            "Interesado en Navara 2021, entrega su auto en parte de pago",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
}
