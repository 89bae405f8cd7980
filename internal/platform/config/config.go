// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	LedgerDatabase = "database"
	LedgerRedis    = "redis"
)

// Config agrega todos os parâmetros necessários para API e worker.
type Config struct {
	HTTPAddress string
	LogLevel    string
	CORSOrigins []string

	StorageBackend string
	SQLitePath     string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FilaKey           string
	ContadorKeyPrefix string
	CanalEventos      string
	LedgerBackend     string

	EstatisticasAssincronas bool

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	AutoMigrate bool

	WorkerMetricsAddress string
	AdminToken           string

	IdentidadeSegredo  string
	PalavrasBloqueadas []string
	HeartbeatInterval  time.Duration
}

func Load() (Config, error) {
	// .env é opcional: em Docker/K8s as variáveis já chegam pelo ambiente.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:             getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		CORSOrigins:             getEnvAsList("CORS_ORIGINS", []string{"*"}),
		StorageBackend:          strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
		SQLitePath:              getEnv("SQLITE_PATH", "convites.db"),
		PostgresHost:            getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:            getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:            getEnv("POSTGRES_USER", "convites"),
		PostgresPassword:        getEnv("POSTGRES_PASSWORD", "convites"),
		PostgresDB:              getEnv("POSTGRES_DB", "convites"),
		PostgresSSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
		RedisEnabled:            getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		FilaKey:                 getEnv("REDIS_QUEUE_KEY", "fila:atividades"),
		ContadorKeyPrefix:       getEnv("REDIS_COUNTER_PREFIX", "contador"),
		CanalEventos:            getEnv("REDIS_EVENTS_CHANNEL", "canal:codigos"),
		LedgerBackend:           strings.ToLower(getEnv("LEDGER_BACKEND", LedgerDatabase)),
		EstatisticasAssincronas: getEnvAsBool("ESTATISTICAS_ASSINCRONAS", false),
		RateLimitEnabled:        getEnvAsBool("ANTIFRAUDE_RATE_LIMIT_ENABLED", true),
		RateLimitMaxActions:     getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_MAX", 30),
		RateLimitWindowSeconds:  getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:      getEnv("ANTIFRAUDE_RATE_LIMIT_PREFIX", "ratelimit"),
		AutoMigrate:             getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:    getEnv("WORKER_METRICS_ADDRESS", ":9090"),
		AdminToken:              os.Getenv("ADMIN_TOKEN"),
		IdentidadeSegredo:       os.Getenv("IDENTIDADE_SEGREDO"),
		PalavrasBloqueadas:      getEnvAsList("PALAVRAS_BLOQUEADAS", nil),
		HeartbeatInterval:       time.Duration(getEnvAsInt("SSE_HEARTBEAT_SECONDS", 30)) * time.Second,
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	if err := cfg.validar(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validar() error {
	switch c.StorageBackend {
	case BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("config: STORAGE_BACKEND desconhecido: %q", c.StorageBackend)
	}

	switch c.LedgerBackend {
	case LedgerDatabase:
	case LedgerRedis:
		if !c.RedisEnabled {
			return fmt.Errorf("config: LEDGER_BACKEND=redis exige REDIS_ENABLED")
		}
	default:
		return fmt.Errorf("config: LEDGER_BACKEND desconhecido: %q", c.LedgerBackend)
	}

	if c.EstatisticasAssincronas && !c.RedisEnabled {
		return fmt.Errorf("config: ESTATISTICAS_ASSINCRONAS exige REDIS_ENABLED")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("config: SSE_HEARTBEAT_SECONDS deve ser positivo")
	}
	return nil
}

func (c Config) PostgresDSN() string {
	// Mantemos o formato DSN compatível com GORM e ferramentas de migração.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}

// getEnvAsList separa por vírgula e descarta itens vazios.
func getEnvAsList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var itens []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			itens = append(itens, item)
		}
	}
	return itens
}
