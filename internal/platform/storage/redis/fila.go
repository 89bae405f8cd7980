package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// Fila usa uma lista Redis para desacoplar a atualização de estatísticas do caminho da requisição.
type Fila struct {
	client redis.UniversalClient
	key    string
	espera time.Duration
}

func NewFila(client redis.UniversalClient, key string) *Fila {
	return &Fila{
		client: client,
		key:    key,
		espera: 2 * time.Second,
	}
}

func (f *Fila) PublicarAtividade(ctx context.Context, atividade domain.Atividade) error {
	payload, err := json.Marshal(atividade)
	if err != nil {
		return fmt.Errorf("redis fila: falha serializando atividade: %w", err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: falha ao enfileirar atividade: %w", err)
	}
	return nil
}

// ConsumirAtividades bloqueia até o contexto encerrar ou o handler devolver erro.
func (f *Fila) ConsumirAtividades(ctx context.Context, handler func(context.Context, domain.Atividade) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// BRPOP com timeout curto para voltar ao laço e respeitar o contexto.
		res, err := f.client.BRPop(ctx, f.espera, f.key).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("redis fila: falha ao consumir atividade: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var atividade domain.Atividade
		if err := json.Unmarshal([]byte(res[1]), &atividade); err != nil {
			return fmt.Errorf("redis fila: payload invalido: %w", err)
		}

		if err := handler(ctx, atividade); err != nil {
			return err
		}
	}
}

func (f *Fila) Tamanho(ctx context.Context) (int64, error) {
	return f.client.LLen(ctx, f.key).Result()
}

var _ domain.Fila = (*Fila)(nil)
