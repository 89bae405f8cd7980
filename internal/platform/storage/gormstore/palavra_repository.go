package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// PalavraRepository guarda a lista de termos bloqueados mantida pela administração.
type PalavraRepository struct {
	db *gorm.DB
}

func NewPalavraRepository(db *gorm.DB) *PalavraRepository {
	return &PalavraRepository{db: db}
}

type palavraModel struct {
	Palavra  string    `gorm:"column:palavra;primaryKey"`
	CriadoEm time.Time `gorm:"column:criado_em"`
}

func (palavraModel) TableName() string {
	return "palavras_bloqueadas"
}

func (r *PalavraRepository) Listar(ctx context.Context) ([]string, error) {
	var palavras []string
	if err := r.db.WithContext(ctx).
		Model(&palavraModel{}).
		Order("palavra ASC").
		Pluck("palavra", &palavras).Error; err != nil {
		return nil, fmt.Errorf("gorm palavras: listar: %w", err)
	}
	return palavras, nil
}

// Adicionar normaliza para minúsculas; repetir uma palavra existente não é erro.
func (r *PalavraRepository) Adicionar(ctx context.Context, palavra string) error {
	palavra = strings.ToLower(strings.TrimSpace(palavra))
	if palavra == "" {
		return fmt.Errorf("gorm palavras: palavra vazia")
	}

	model := palavraModel{Palavra: palavra, CriadoEm: time.Now().UTC()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error; err != nil {
		return fmt.Errorf("gorm palavras: adicionar: %w", err)
	}
	return nil
}

var _ domain.PalavraRepository = (*PalavraRepository)(nil)
