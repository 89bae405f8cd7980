// Pacote antifraude limita a frequência de submissões, votos e cópias por identidade.
package antifraude

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// RedisRateLimiter conta ações por (ação, identidade) em janelas fixas.
type RedisRateLimiter struct {
	client    redis.UniversalClient
	limit     int
	limites   map[domain.Acao]int
	window    time.Duration
	keyPrefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		limites:   make(map[domain.Acao]int),
		window:    window,
		keyPrefix: prefix,
	}
}

// ComLimite sobrescreve a cota de uma ação específica.
func (r *RedisRateLimiter) ComLimite(acao domain.Acao, limite int) *RedisRateLimiter {
	r.limites[acao] = limite
	return r
}

func (r *RedisRateLimiter) Validar(ctx context.Context, acao domain.Acao, identidade string) error {
	limite := r.limiteDe(acao)
	if r.client == nil || limite <= 0 || r.window <= 0 || identidade == "" {
		// Configurações inválidas caem no modo permissivo.
		return nil
	}

	key := r.buildKey(acao, identidade)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("antifraude: falha ao incrementar chave: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("antifraude: falha ao definir expiracao: %w", err)
		}
	}

	if count > int64(limite) {
		return domain.ErrLimiteExcedido
	}
	return nil
}

func (r *RedisRateLimiter) limiteDe(acao domain.Acao) int {
	if l, ok := r.limites[acao]; ok {
		return l
	}
	return r.limit
}

func (r *RedisRateLimiter) buildKey(acao domain.Acao, identidade string) string {
	hash := sha1.Sum([]byte(identidade))
	return fmt.Sprintf("%s:%s:%s", r.keyPrefix, acao, hex.EncodeToString(hash[:]))
}

var _ domain.Antifraude = (*RedisRateLimiter)(nil)
