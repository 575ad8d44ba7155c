package intent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	logx "github.com/agente-usados/server/pkg/logger"
)

// Two-label topic prompt. The classifier only says AUTOS or OTRO; everything
// else about the message is handled by the bypass rules.
const topicPrompt = `Eres un clasificador. Responde exactamente una palabra:
- AUTOS: si la pregunta trata de automóviles, coches, vehículos, compra/venta de autos, stock, precios, marcas, modelos, características de autos.
- OTRO: si no tiene relación con automóviles (clima, deportes, política, recetas, etc.).

Responde solo: AUTOS o OTRO.`

// Classifier answers the coarse automotive-relatedness question, delegating
// to a chat model. It fails open: an unreachable or unconfigured model routes
// the message on-topic, because mis-firing the gate costs more than rarely
// answering an off-topic question.
type Classifier struct {
	model model.BaseChatModel
}

// NewClassifier wraps a chat model; a nil model disables the gate entirely.
func NewClassifier(m model.BaseChatModel) *Classifier {
	return &Classifier{model: m}
}

// IsAutomotive reports whether the text is about cars. Empty text is not.
func (c *Classifier) IsAutomotive(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if c == nil || c.model == nil {
		return true
	}

	out, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(topicPrompt),
		schema.UserMessage(strings.TrimSpace(text)),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("Topic classifier unavailable; failing open")
		return true
	}
	if out == nil {
		return true
	}
	return strings.Contains(strings.ToUpper(out.Content), "AUTOS")
}
