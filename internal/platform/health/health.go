package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dependencia é qualquer recurso externo que precisa responder para a instância receber tráfego.
type Dependencia struct {
	Nome string
	Ping func(ctx context.Context) error
}

type Checker struct {
	deps    []Dependencia
	timeout time.Duration
}

func NewChecker(deps ...Dependencia) *Checker {
	return &Checker{deps: deps, timeout: 2 * time.Second}
}

func Database(db *sql.DB) Dependencia {
	return Dependencia{Nome: "database", Ping: db.PingContext}
}

func Redis(client *redis.Client) Dependencia {
	return Dependencia{Nome: "redis", Ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

type relatorio struct {
	Status       string            `json:"status"`
	Dependencias map[string]string `json:"dependencies"`
}

// ReadyHandler checa todas as dependências e responde 503 se qualquer uma falhar.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()

		rel := relatorio{Status: "ok", Dependencias: make(map[string]string, len(c.deps))}
		status := http.StatusOK
		for _, dep := range c.deps {
			if err := dep.Ping(ctx); err != nil {
				rel.Dependencias[dep.Nome] = "unavailable"
				rel.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			rel.Dependencias[dep.Nome] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(rel)
	}
}

func LiveHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
