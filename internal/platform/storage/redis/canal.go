package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/logger"
)

// Canal distribui eventos de mudança entre instâncias via PUBLISH/SUBSCRIBE.
type Canal struct {
	client redis.UniversalClient
	nome   string
}

func NewCanal(client redis.UniversalClient, nome string) *Canal {
	return &Canal{client: client, nome: nome}
}

func (c *Canal) Publicar(ctx context.Context, evento domain.Evento) error {
	payload, err := json.Marshal(evento)
	if err != nil {
		return fmt.Errorf("redis canal: falha serializando evento: %w", err)
	}
	if err := c.client.Publish(ctx, c.nome, payload).Err(); err != nil {
		return fmt.Errorf("redis canal: falha ao publicar: %w", err)
	}
	return nil
}

// Assinar confirma a inscrição antes de retornar e repassa cada evento ao handler
// em background até o contexto encerrar.
func (c *Canal) Assinar(ctx context.Context, handler func(domain.Evento)) error {
	sub := c.client.Subscribe(ctx, c.nome)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis canal: falha ao assinar %s: %w", c.nome, err)
	}

	go func() {
		defer sub.Close()
		mensagens := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-mensagens:
				if !ok {
					return
				}
				var evento domain.Evento
				if err := json.Unmarshal([]byte(msg.Payload), &evento); err != nil {
					logger.Warn("redis canal: payload invalido", "error", err)
					continue
				}
				handler(evento)
			}
		}
	}()

	return nil
}

var _ domain.Notificador = (*Canal)(nil)
