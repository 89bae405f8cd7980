package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// CodigoRepository mapeia os códigos de convite e concentra os incrementos atômicos de contadores.
type CodigoRepository struct {
	db    *gorm.DB
	clock domain.Clock
}

func NewCodigoRepository(db *gorm.DB, clock domain.Clock) *CodigoRepository {
	return &CodigoRepository{db: db, clock: clock}
}

type codigoModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Codigo             string    `gorm:"column:codigo"`
	Normalizado        string    `gorm:"column:normalizado"`
	Status             string    `gorm:"column:status"`
	VotosFuncionou     int64     `gorm:"column:votos_funcionou"`
	VotosNaoFuncionou  int64     `gorm:"column:votos_nao_funcionou"`
	UnicosFuncionou    int64     `gorm:"column:unicos_funcionou"`
	UnicosNaoFuncionou int64     `gorm:"column:unicos_nao_funcionou"`
	Copias             int64     `gorm:"column:copias"`
	CopiasUnicas       int64     `gorm:"column:copias_unicas"`
	Autor              string    `gorm:"column:autor"`
	CriadoEm           time.Time `gorm:"column:criado_em"`
	AtualizadoEm       time.Time `gorm:"column:atualizado_em"`
}

func (codigoModel) TableName() string {
	return "codigos"
}

func (m codigoModel) toDomain() domain.Codigo {
	return domain.Codigo{
		ID:          domain.CodigoID(m.ID),
		Codigo:      m.Codigo,
		Normalizado: m.Normalizado,
		Status:      domain.Status(m.Status),
		Votos: domain.Votos{
			Funcionou:          m.VotosFuncionou,
			NaoFuncionou:       m.VotosNaoFuncionou,
			UnicosFuncionou:    m.UnicosFuncionou,
			UnicosNaoFuncionou: m.UnicosNaoFuncionou,
		},
		Copias:       m.Copias,
		CopiasUnicas: m.CopiasUnicas,
		Autor:        m.Autor,
		CriadoEm:     m.CriadoEm,
		AtualizadoEm: m.AtualizadoEm,
	}
}

func fromDomainCodigo(c domain.Codigo) codigoModel {
	return codigoModel{
		ID:                 string(c.ID),
		Codigo:             c.Codigo,
		Normalizado:        c.Normalizado,
		Status:             string(c.Status),
		VotosFuncionou:     c.Votos.Funcionou,
		VotosNaoFuncionou:  c.Votos.NaoFuncionou,
		UnicosFuncionou:    c.Votos.UnicosFuncionou,
		UnicosNaoFuncionou: c.Votos.UnicosNaoFuncionou,
		Copias:             c.Copias,
		CopiasUnicas:       c.CopiasUnicas,
		Autor:              c.Autor,
		CriadoEm:           c.CriadoEm,
		AtualizadoEm:       c.AtualizadoEm,
	}
}

func (r *CodigoRepository) Criar(ctx context.Context, c domain.Codigo) error {
	model := fromDomainCodigo(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return fmt.Errorf("gorm codigos: inserir: %w", err)
	}
	return nil
}

func (r *CodigoRepository) BuscarPorID(ctx context.Context, id domain.CodigoID) (domain.Codigo, error) {
	return r.buscar(ctx, "id = ?", string(id))
}

func (r *CodigoRepository) BuscarPorNormalizado(ctx context.Context, normalizado string) (domain.Codigo, error) {
	return r.buscar(ctx, "normalizado = ?", normalizado)
}

func (r *CodigoRepository) buscar(ctx context.Context, query string, arg any) (domain.Codigo, error) {
	var model codigoModel
	if err := r.db.WithContext(ctx).First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Codigo{}, domain.ErrNotFound
		}
		return domain.Codigo{}, fmt.Errorf("gorm codigos: buscar: %w", err)
	}
	return model.toDomain(), nil
}

func (r *CodigoRepository) ListarPorStatus(ctx context.Context, status domain.Status) ([]domain.Codigo, error) {
	var models []codigoModel
	if err := r.db.WithContext(ctx).
		// O índice (status, criado_em) cobre o filtro e a ordenação.
		Where("status = ?", string(status)).
		Order("criado_em DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm codigos: listar por status: %w", err)
	}
	return toDomainCodigos(models), nil
}

func (r *CodigoRepository) ListarTodos(ctx context.Context) ([]domain.Codigo, error) {
	var models []codigoModel
	if err := r.db.WithContext(ctx).
		Order("criado_em DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm codigos: listar todos: %w", err)
	}
	return toDomainCodigos(models), nil
}

func (r *CodigoRepository) ContarPorStatus(ctx context.Context) (map[domain.Status]int64, error) {
	type resultado struct {
		Status string
		Total  int64
	}
	var res []resultado
	if err := r.db.WithContext(ctx).
		Model(&codigoModel{}).
		Select("status as status, COUNT(*) as total").
		Group("status").
		Scan(&res).Error; err != nil {
		return nil, fmt.Errorf("gorm codigos: contar por status: %w", err)
	}

	totais := make(map[domain.Status]int64, len(res))
	for _, item := range res {
		totais[domain.Status(item.Status)] = item.Total
	}
	return totais, nil
}

func (r *CodigoRepository) IncrementarVoto(ctx context.Context, id domain.CodigoID, tipo domain.TipoVoto, unico bool) (domain.Codigo, error) {
	bruto, dedup := "votos_funcionou", "unicos_funcionou"
	if tipo == domain.VotoNaoFuncionou {
		bruto, dedup = "votos_nao_funcionou", "unicos_nao_funcionou"
	}

	updates := map[string]any{bruto: gorm.Expr(bruto+" + ?", 1)}
	if unico {
		updates[dedup] = gorm.Expr(dedup+" + ?", 1)
	}
	return r.incrementar(ctx, id, updates)
}

func (r *CodigoRepository) IncrementarCopia(ctx context.Context, id domain.CodigoID, unico bool) (domain.Codigo, error) {
	updates := map[string]any{"copias": gorm.Expr("copias + ?", 1)}
	if unico {
		updates["copias_unicas"] = gorm.Expr("copias_unicas + ?", 1)
	}
	return r.incrementar(ctx, id, updates)
}

// incrementar aplica o UPDATE ... SET c = c + 1 e relê a linha na mesma transação,
// devolvendo o snapshot que já inclui o incremento desta chamada.
func (r *CodigoRepository) incrementar(ctx context.Context, id domain.CodigoID, updates map[string]any) (domain.Codigo, error) {
	updates["atualizado_em"] = r.clock.Agora()

	var model codigoModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&codigoModel{}).Where("id = ?", string(id)).UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.First(&model, "id = ?", string(id)).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Codigo{}, err
		}
		return domain.Codigo{}, fmt.Errorf("gorm codigos: incrementar: %w", err)
	}
	return model.toDomain(), nil
}

func (r *CodigoRepository) TransicionarStatus(ctx context.Context, id domain.CodigoID, de, para domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&codigoModel{}).
		Where("id = ? AND status = ?", string(id), string(de)).
		UpdateColumns(map[string]any{
			"status":        string(para),
			"atualizado_em": r.clock.Agora(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("gorm codigos: transicionar status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func toDomainCodigos(models []codigoModel) []domain.Codigo {
	result := make([]domain.Codigo, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result
}

var _ domain.CodigoRepository = (*CodigoRepository)(nil)
