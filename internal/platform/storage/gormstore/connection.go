// Pacote gormstore implementa a camada de persistência relacional via GORM (Postgres em produção, SQLite local).
package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

func Open(ctx context.Context, backend, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch backend {
	case BackendPostgres:
		dialector = postgres.Open(dsn)
	case BackendSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: backend desconhecido %q", backend)
	}

	// TranslateError converte violações de unicidade em gorm.ErrDuplicatedKey nos dois dialetos.
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: abrir conexao %s: %w", backend, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: obter sql.DB: %w", err)
	}

	if backend == BackendSQLite {
		// SQLite serializa escritas; uma conexão evita "database is locked" sob concorrência.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(60 * time.Minute)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctxPing); err != nil {
		return nil, fmt.Errorf("gormstore: ping falhou: %w", err)
	}

	return gormDB, nil
}
