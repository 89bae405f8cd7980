package antifraude

import (
	"context"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// Noop aceita qualquer ação; usado quando o rate limit é desligado via config ou sem Redis.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Validar(context.Context, domain.Acao, string) error {
	return nil
}

var _ domain.Antifraude = Noop{}
