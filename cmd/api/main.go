// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/mural-convites/internal/app/convites"
	"github.com/marcelojr/mural-convites/internal/app/eventos"
	"github.com/marcelojr/mural-convites/internal/app/httpapi"
	"github.com/marcelojr/mural-convites/internal/app/identidade"
	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/antifraude"
	"github.com/marcelojr/mural-convites/internal/platform/clock"
	"github.com/marcelojr/mural-convites/internal/platform/config"
	"github.com/marcelojr/mural-convites/internal/platform/health"
	"github.com/marcelojr/mural-convites/internal/platform/ids"
	"github.com/marcelojr/mural-convites/internal/platform/logger"
	"github.com/marcelojr/mural-convites/internal/platform/migrations"
	"github.com/marcelojr/mural-convites/internal/platform/storage/gormstore"
	redisstorage "github.com/marcelojr/mural-convites/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	dsn := cfg.SQLitePath
	if cfg.StorageBackend == config.BackendPostgres {
		dsn = cfg.PostgresDSN()
	}
	db, err := gormstore.Open(ctx, cfg.StorageBackend, dsn)
	if err != nil {
		logger.Fatal("falha ao conectar no banco", "backend", cfg.StorageBackend, "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	clockSystem := clock.NewSystemClock()
	hub := eventos.NewHub(cfg.HeartbeatInterval, clockSystem)
	hub.Start(ctx)

	deps := convites.Dependencias{
		Codigos:            gormstore.NewCodigoRepository(db, clockSystem),
		Ledger:             gormstore.NewLedger(db),
		Estatisticas:       gormstore.NewEstatisticaRepository(db),
		Palavras:           gormstore.NewPalavraRepository(db),
		Antifraude:         antifraude.NewNoop(),
		Notificador:        hub,
		Clock:              clockSystem,
		IDs:                ids.NewGenerator(),
		PalavrasBloqueadas: cfg.PalavrasBloqueadas,
	}
	checks := []health.Dependencia{health.Database(sqlDB)}

	// Sem Redis a instância roda sozinha: contadores saem do banco e os eventos vão direto ao hub.
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("falha ao conectar no redis", "err", err)
		}
		defer redisClient.Close()
		checks = append(checks, health.Redis(redisClient))

		deps.Contador = redisstorage.NewContador(redisClient, cfg.ContadorKeyPrefix)
		if cfg.EstatisticasAssincronas {
			deps.Fila = redisstorage.NewFila(redisClient, cfg.FilaKey)
		}
		if cfg.LedgerBackend == config.LedgerRedis {
			deps.Ledger = redisstorage.NewLedger(redisClient, "")
		}
		if cfg.RateLimitEnabled {
			window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
			// Copiar é a ação mais frequente; recebe o dobro do limite base.
			deps.Antifraude = antifraude.NewRedisRateLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix).
				ComLimite(domain.AcaoCopiar, 2*cfg.RateLimitMaxActions)
		}

		// Mutações publicam no canal; cada instância assina e repassa ao próprio hub.
		canal := redisstorage.NewCanal(redisClient, cfg.CanalEventos)
		if err := canal.Assinar(ctx, hub.Repassar); err != nil {
			logger.Fatal("falha ao assinar canal de eventos", "canal", cfg.CanalEventos, "err", err)
		}
		deps.Notificador = canal
	}

	servico := convites.NewService(deps)
	checker := health.NewChecker(checks...)

	if cfg.IdentidadeSegredo == "" {
		logger.Warn("IDENTIDADE_SEGREDO vazio: identidades derivadas ficam previsiveis")
	}

	api := httpapi.New(servico, httpapi.Opcoes{
		Identidades: identidade.NewDerivador(cfg.IdentidadeSegredo, clockSystem),
		Stream:      hub,
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
		Extras: func(r chi.Router) {
			r.Get("/readyz", checker.ReadyHandler())
			r.Handle("/metrics", promhttp.Handler())
		},
	}, logger.L())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// O hub fecha primeiro para liberar os handlers SSE presos em conexões longas.
		if err := hub.Shutdown(shutdownCtx); err != nil {
			logger.Warn("hub nao finalizou a tempo", "err", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("erro ao finalizar servidor", "err", err)
		}
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress, "backend", cfg.StorageBackend, "redis", cfg.RedisEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}
