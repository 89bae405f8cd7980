// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/mural-convites/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, Lista())

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}

// Lista é exportada para que os testes de repositório apliquem exatamente o mesmo schema.
func Lista() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202506010001_codigos",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Codigo{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("codigos")
			},
		},
		{
			ID: "202506010002_ledger",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.RegistroVoto{}, &domain.RegistroCopia{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("registros_copia", "registros_voto")
			},
		},
		{
			ID: "202506010003_estatisticas",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.EstatisticaUsuario{}, &domain.EstatisticaDiaria{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("estatisticas_diarias", "estatisticas_usuario")
			},
		},
		{
			ID: "202506020001_palavras_bloqueadas",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.PalavraBloqueada{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("palavras_bloqueadas")
			},
		},
	}
}
