package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/mural-convites/internal/domain"
)

const formatoDia = "2006-01-02"

// EstatisticaRepository mantém os agregados por usuário e por dia com upserts incrementais.
type EstatisticaRepository struct {
	db *gorm.DB
}

func NewEstatisticaRepository(db *gorm.DB) *EstatisticaRepository {
	return &EstatisticaRepository{db: db}
}

type estatisticaUsuarioModel struct {
	Identidade     string    `gorm:"column:identidade;primaryKey"`
	Copias         int64     `gorm:"column:copias"`
	Votos          int64     `gorm:"column:votos"`
	Submissoes     int64     `gorm:"column:submissoes"`
	PrimeiraVisita time.Time `gorm:"column:primeira_visita"`
	UltimaVisita   time.Time `gorm:"column:ultima_visita"`
}

func (estatisticaUsuarioModel) TableName() string {
	return "estatisticas_usuario"
}

type estatisticaDiariaModel struct {
	Dia        string `gorm:"column:dia;primaryKey"`
	Submissoes int64  `gorm:"column:submissoes"`
	Votos      int64  `gorm:"column:votos"`
	Copias     int64  `gorm:"column:copias"`
	Transicoes int64  `gorm:"column:transicoes"`
}

func (estatisticaDiariaModel) TableName() string {
	return "estatisticas_diarias"
}

// delta traduz o tipo da atividade nos incrementos de cada contador.
type delta struct {
	copias, votos, submissoes, transicoes int64
}

func deltaDe(tipo domain.TipoAtividade) (delta, error) {
	switch tipo {
	case domain.AtividadeCopia:
		return delta{copias: 1}, nil
	case domain.AtividadeVoto:
		return delta{votos: 1}, nil
	case domain.AtividadeSubmissao:
		return delta{submissoes: 1}, nil
	case domain.AtividadeTransicao:
		return delta{transicoes: 1}, nil
	default:
		return delta{}, fmt.Errorf("gorm estatisticas: tipo de atividade desconhecido %q", tipo)
	}
}

func (r *EstatisticaRepository) Aplicar(ctx context.Context, atividade domain.Atividade) error {
	d, err := deltaDe(atividade.Tipo)
	if err != nil {
		return err
	}
	em := atividade.Em.UTC()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dia := estatisticaDiariaModel{
			Dia:        em.Format(formatoDia),
			Submissoes: d.submissoes,
			Votos:      d.votos,
			Copias:     d.copias,
			Transicoes: d.transicoes,
		}
		// excluded.* carrega os deltas da linha que tentou ser inserida.
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "dia"}},
			DoUpdates: clause.Assignments(map[string]any{
				"submissoes": gorm.Expr("estatisticas_diarias.submissoes + excluded.submissoes"),
				"votos":      gorm.Expr("estatisticas_diarias.votos + excluded.votos"),
				"copias":     gorm.Expr("estatisticas_diarias.copias + excluded.copias"),
				"transicoes": gorm.Expr("estatisticas_diarias.transicoes + excluded.transicoes"),
			}),
		}).Create(&dia).Error; err != nil {
			return err
		}

		if atividade.Identidade == "" || atividade.Tipo == domain.AtividadeTransicao {
			return nil
		}

		usuario := estatisticaUsuarioModel{
			Identidade:     atividade.Identidade,
			Copias:         d.copias,
			Votos:          d.votos,
			Submissoes:     d.submissoes,
			PrimeiraVisita: em,
			UltimaVisita:   em,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identidade"}},
			DoUpdates: clause.Assignments(map[string]any{
				"copias":        gorm.Expr("estatisticas_usuario.copias + excluded.copias"),
				"votos":         gorm.Expr("estatisticas_usuario.votos + excluded.votos"),
				"submissoes":    gorm.Expr("estatisticas_usuario.submissoes + excluded.submissoes"),
				"ultima_visita": gorm.Expr("excluded.ultima_visita"),
			}),
		}).Create(&usuario).Error
	})
	if err != nil {
		return fmt.Errorf("gorm estatisticas: aplicar %s: %w", atividade.Tipo, err)
	}
	return nil
}

func (r *EstatisticaRepository) ListarUsuarios(ctx context.Context, limite int) ([]domain.EstatisticaUsuario, error) {
	var models []estatisticaUsuarioModel
	q := r.db.WithContext(ctx).Order("ultima_visita DESC, identidade ASC")
	if limite > 0 {
		q = q.Limit(limite)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm estatisticas: listar usuarios: %w", err)
	}

	result := make([]domain.EstatisticaUsuario, len(models))
	for i, m := range models {
		result[i] = domain.EstatisticaUsuario{
			Identidade:     m.Identidade,
			Copias:         m.Copias,
			Votos:          m.Votos,
			Submissoes:     m.Submissoes,
			PrimeiraVisita: m.PrimeiraVisita,
			UltimaVisita:   m.UltimaVisita,
		}
	}
	return result, nil
}

func (r *EstatisticaRepository) ListarDias(ctx context.Context, limite int) ([]domain.EstatisticaDiaria, error) {
	var models []estatisticaDiariaModel
	q := r.db.WithContext(ctx).Order("dia DESC")
	if limite > 0 {
		q = q.Limit(limite)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm estatisticas: listar dias: %w", err)
	}

	result := make([]domain.EstatisticaDiaria, len(models))
	for i, m := range models {
		result[i] = domain.EstatisticaDiaria{
			Dia:        m.Dia,
			Submissoes: m.Submissoes,
			Votos:      m.Votos,
			Copias:     m.Copias,
			Transicoes: m.Transicoes,
		}
	}
	return result, nil
}

var _ domain.EstatisticaRepository = (*EstatisticaRepository)(nil)
