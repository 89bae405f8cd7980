// Worker assíncrono que consome atividades da fila e aplica as estatísticas por usuário e por dia.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcelojr/mural-convites/internal/app/worker"
	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/clock"
	"github.com/marcelojr/mural-convites/internal/platform/config"
	"github.com/marcelojr/mural-convites/internal/platform/health"
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

	if !cfg.RedisEnabled {
		logger.Fatal("worker exige REDIS_ENABLED: a fila de atividades vive no redis")
	}

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
		// Mesma migração condicional da API para não divergir o schema.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	redisClient, err := redisstorage.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	fila := redisstorage.NewFila(redisClient, cfg.FilaKey)
	checker := health.NewChecker(health.Database(sqlDB), health.Redis(redisClient))

	if cfg.WorkerMetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/readyz", checker.ReadyHandler())
		srv := &http.Server{Addr: cfg.WorkerMetricsAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("erro no servidor de metrics do worker", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	processor := worker.NewAtividadeProcessor(gormstore.NewEstatisticaRepository(db), clock.NewSystemClock())

	logger.Info("worker iniciado, aguardando atividades", "fila", cfg.FilaKey)
	err = fila.ConsumirAtividades(ctx, func(ctx context.Context, atividade domain.Atividade) error {
		// Falha isolada não derruba o consumo: a atividade é descartada e logada.
		if err := processor.Process(ctx, atividade); err != nil {
			logger.Error("erro ao processar atividade", "tipo", atividade.Tipo, "codigo_id", atividade.CodigoID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker finalizado com erro", "err", err)
	}

	logger.Info("worker finalizado")
}
