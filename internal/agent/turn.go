package agent

import (
	"context"

	"github.com/agente-usados/server/internal/stock"
)

type turnKey struct{}

// TurnContext travels through the tool calls of one turn. Tools write what
// the customer was shown so the tracker can snapshot it for "opción N".
type TurnContext struct {
	ThreadID  string
	LastShown []stock.Vehicle
}

func withTurn(ctx context.Context, tc *TurnContext) context.Context {
	return context.WithValue(ctx, turnKey{}, tc)
}

func turnFrom(ctx context.Context) *TurnContext {
	tc, _ := ctx.Value(turnKey{}).(*TurnContext)
	return tc
}
