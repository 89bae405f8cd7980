package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// Ledger guarda as identidades que já votaram/copiaram em sets por código.
// SADD devolve 1 apenas na primeira inserção, o que torna a checagem atômica.
type Ledger struct {
	client redis.UniversalClient
	prefix string
}

func NewLedger(client redis.UniversalClient, prefix string) *Ledger {
	if prefix == "" {
		prefix = "ledger"
	}
	return &Ledger{client: client, prefix: prefix}
}

func (l *Ledger) RegistrarVoto(ctx context.Context, registro domain.RegistroVoto) (bool, error) {
	adicionados, err := l.client.SAdd(ctx, l.chaveVoto(registro), registro.Identidade).Result()
	if err != nil {
		return false, fmt.Errorf("redis ledger: registrar voto: %w", err)
	}
	return adicionados == 1, nil
}

func (l *Ledger) RegistrarCopia(ctx context.Context, registro domain.RegistroCopia) (bool, error) {
	adicionados, err := l.client.SAdd(ctx, l.chaveCopia(registro), registro.Identidade).Result()
	if err != nil {
		return false, fmt.Errorf("redis ledger: registrar copia: %w", err)
	}
	return adicionados == 1, nil
}

func (l *Ledger) DesfazerVoto(ctx context.Context, registro domain.RegistroVoto) error {
	if err := l.client.SRem(ctx, l.chaveVoto(registro), registro.Identidade).Err(); err != nil {
		return fmt.Errorf("redis ledger: desfazer voto: %w", err)
	}
	return nil
}

func (l *Ledger) DesfazerCopia(ctx context.Context, registro domain.RegistroCopia) error {
	if err := l.client.SRem(ctx, l.chaveCopia(registro), registro.Identidade).Err(); err != nil {
		return fmt.Errorf("redis ledger: desfazer copia: %w", err)
	}
	return nil
}

func (l *Ledger) chaveVoto(registro domain.RegistroVoto) string {
	return fmt.Sprintf("%s:voto:%s:%s", l.prefix, registro.CodigoID, registro.Tipo)
}

func (l *Ledger) chaveCopia(registro domain.RegistroCopia) string {
	return fmt.Sprintf("%s:copia:%s", l.prefix, registro.CodigoID)
}

var _ domain.Ledger = (*Ledger)(nil)
