package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// Ledger grava as entradas de deduplicação; a chave primária composta garante uma linha por tupla.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

type registroVotoModel struct {
	CodigoID   string    `gorm:"column:codigo_id;primaryKey"`
	Identidade string    `gorm:"column:identidade;primaryKey"`
	Tipo       string    `gorm:"column:tipo;primaryKey"`
	CriadoEm   time.Time `gorm:"column:criado_em"`
}

func (registroVotoModel) TableName() string {
	return "registros_voto"
}

type registroCopiaModel struct {
	CodigoID   string    `gorm:"column:codigo_id;primaryKey"`
	Identidade string    `gorm:"column:identidade;primaryKey"`
	CriadoEm   time.Time `gorm:"column:criado_em"`
}

func (registroCopiaModel) TableName() string {
	return "registros_copia"
}

func (l *Ledger) RegistrarVoto(ctx context.Context, registro domain.RegistroVoto) (bool, error) {
	model := registroVotoModel{
		CodigoID:   string(registro.CodigoID),
		Identidade: registro.Identidade,
		Tipo:       string(registro.Tipo),
		CriadoEm:   registro.CriadoEm,
	}
	novo, err := l.inserir(ctx, &model)
	if err != nil {
		return false, fmt.Errorf("gorm ledger: registrar voto: %w", err)
	}
	return novo, nil
}

func (l *Ledger) RegistrarCopia(ctx context.Context, registro domain.RegistroCopia) (bool, error) {
	model := registroCopiaModel{
		CodigoID:   string(registro.CodigoID),
		Identidade: registro.Identidade,
		CriadoEm:   registro.CriadoEm,
	}
	novo, err := l.inserir(ctx, &model)
	if err != nil {
		return false, fmt.Errorf("gorm ledger: registrar copia: %w", err)
	}
	return novo, nil
}

func (l *Ledger) DesfazerVoto(ctx context.Context, registro domain.RegistroVoto) error {
	err := l.db.WithContext(ctx).
		Where("codigo_id = ? AND identidade = ? AND tipo = ?", string(registro.CodigoID), registro.Identidade, string(registro.Tipo)).
		Delete(&registroVotoModel{}).Error
	if err != nil {
		return fmt.Errorf("gorm ledger: desfazer voto: %w", err)
	}
	return nil
}

func (l *Ledger) DesfazerCopia(ctx context.Context, registro domain.RegistroCopia) error {
	err := l.db.WithContext(ctx).
		Where("codigo_id = ? AND identidade = ?", string(registro.CodigoID), registro.Identidade).
		Delete(&registroCopiaModel{}).Error
	if err != nil {
		return fmt.Errorf("gorm ledger: desfazer copia: %w", err)
	}
	return nil
}

// inserir usa ON CONFLICT DO NOTHING: zero linhas afetadas significa que a tupla já existia.
func (l *Ledger) inserir(ctx context.Context, model any) (bool, error) {
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

var _ domain.Ledger = (*Ledger)(nil)
