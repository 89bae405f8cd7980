// Pacote worker contém o processamento assíncrono das atividades publicadas na fila Redis.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/metrics"
)

// AtividadeProcessor aplica cada atividade às estatísticas por usuário e por dia.
type AtividadeProcessor struct {
	estatisticas domain.EstatisticaRepository
	clock        domain.Clock
}

func NewAtividadeProcessor(estatisticas domain.EstatisticaRepository, clock domain.Clock) *AtividadeProcessor {
	return &AtividadeProcessor{
		estatisticas: estatisticas,
		clock:        clock,
	}
}

func (p *AtividadeProcessor) Process(ctx context.Context, atividade domain.Atividade) error {
	start := time.Now()

	// Atividade sem carimbo recebe o instante de chegada no worker.
	if atividade.Em.IsZero() {
		atividade.Em = p.clock.Agora()
	}

	if err := p.estatisticas.Aplicar(ctx, atividade); err != nil {
		return fmt.Errorf("worker: aplicar atividade %s de %q: %w", atividade.Tipo, atividade.Identidade, err)
	}

	metrics.IncActivityProcessed(string(atividade.Tipo))
	metrics.ObserveProcessingDuration(time.Since(start).Seconds())

	return nil
}
