package domain

import (
	"time"
)

type CodigoID string

type Status string

const (
	StatusAtivo    Status = "active"
	StatusUsado    Status = "used"
	StatusInvalido Status = "invalid"
)

// Terminal indica que nenhuma transição parte deste status.
func (s Status) Terminal() bool {
	return s == StatusUsado || s == StatusInvalido
}

func (s Status) Valido() bool {
	switch s {
	case StatusAtivo, StatusUsado, StatusInvalido:
		return true
	default:
		return false
	}
}

type TipoVoto string

const (
	VotoFuncionou    TipoVoto = "worked"
	VotoNaoFuncionou TipoVoto = "didntWork"
)

func (t TipoVoto) Valido() bool {
	return t == VotoFuncionou || t == VotoNaoFuncionou
}

// Votos guarda os contadores brutos e os deduplicados por identidade.
type Votos struct {
	Funcionou          int64 `gorm:"column:votos_funcionou;not null;default:0" json:"worked"`
	NaoFuncionou       int64 `gorm:"column:votos_nao_funcionou;not null;default:0" json:"didntWork"`
	UnicosFuncionou    int64 `gorm:"column:unicos_funcionou;not null;default:0" json:"uniqueWorked"`
	UnicosNaoFuncionou int64 `gorm:"column:unicos_nao_funcionou;not null;default:0" json:"uniqueDidntWork"`
}

type Codigo struct {
	ID           CodigoID  `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Codigo       string    `gorm:"column:codigo;type:varchar(20);not null" json:"code"`
	Normalizado  string    `gorm:"column:normalizado;type:varchar(20);not null;uniqueIndex:idx_codigos_normalizado" json:"-"`
	Status       Status    `gorm:"column:status;type:varchar(16);not null;default:'active';index:idx_codigos_status_criado_em,priority:1" json:"status"`
	Votos        Votos     `gorm:"embedded" json:"votes"`
	Copias       int64     `gorm:"column:copias;not null;default:0" json:"copiedCount"`
	CopiasUnicas int64     `gorm:"column:copias_unicas;not null;default:0" json:"uniqueCopiedCount"`
	Autor        string    `gorm:"column:autor;type:varchar(50)" json:"submitterName,omitempty"`
	CriadoEm     time.Time `gorm:"column:criado_em;autoCreateTime;index:idx_codigos_status_criado_em,priority:2" json:"createdAt"`
	AtualizadoEm time.Time `gorm:"column:atualizado_em;autoUpdateTime" json:"updatedAt"`
}

// RegistroVoto é a entrada do ledger de deduplicação de votos; criada uma única vez por tupla.
type RegistroVoto struct {
	CodigoID   CodigoID  `gorm:"column:codigo_id;type:char(26);primaryKey"`
	Identidade string    `gorm:"column:identidade;type:varchar(64);primaryKey"`
	Tipo       TipoVoto  `gorm:"column:tipo;type:varchar(16);primaryKey"`
	CriadoEm   time.Time `gorm:"column:criado_em;autoCreateTime"`
}

type RegistroCopia struct {
	CodigoID   CodigoID  `gorm:"column:codigo_id;type:char(26);primaryKey"`
	Identidade string    `gorm:"column:identidade;type:varchar(64);primaryKey"`
	CriadoEm   time.Time `gorm:"column:criado_em;autoCreateTime"`
}

type EstatisticaUsuario struct {
	Identidade     string    `gorm:"column:identidade;type:varchar(64);primaryKey" json:"identity"`
	Copias         int64     `gorm:"column:copias;not null;default:0" json:"copyCount"`
	Votos          int64     `gorm:"column:votos;not null;default:0" json:"voteCount"`
	Submissoes     int64     `gorm:"column:submissoes;not null;default:0" json:"submitCount"`
	PrimeiraVisita time.Time `gorm:"column:primeira_visita;not null" json:"firstVisit"`
	UltimaVisita   time.Time `gorm:"column:ultima_visita;not null;index" json:"lastVisit"`
}

// EstatisticaDiaria agrega a atividade por dia UTC (formato 2006-01-02).
type EstatisticaDiaria struct {
	Dia        string `gorm:"column:dia;type:char(10);primaryKey" json:"day"`
	Submissoes int64  `gorm:"column:submissoes;not null;default:0" json:"submissions"`
	Votos      int64  `gorm:"column:votos;not null;default:0" json:"votes"`
	Copias     int64  `gorm:"column:copias;not null;default:0" json:"copies"`
	Transicoes int64  `gorm:"column:transicoes;not null;default:0" json:"statusChanges"`
}

type PalavraBloqueada struct {
	Palavra  string    `gorm:"column:palavra;type:varchar(64);primaryKey"`
	CriadoEm time.Time `gorm:"column:criado_em;autoCreateTime"`
}

type TipoAtividade string

const (
	AtividadeCopia     TipoAtividade = "copia"
	AtividadeVoto      TipoAtividade = "voto"
	AtividadeSubmissao TipoAtividade = "submissao"
	AtividadeTransicao TipoAtividade = "transicao"
)

// Atividade é o registro tipado que alimenta as estatísticas por usuário e por dia.
// Transições não possuem identidade: contam apenas no agregado diário.
type Atividade struct {
	Tipo       TipoAtividade `json:"tipo"`
	Identidade string        `json:"identidade,omitempty"`
	CodigoID   CodigoID      `json:"codigo_id,omitempty"`
	Status     Status        `json:"status,omitempty"`
	Em         time.Time     `json:"em"`
}

type TipoEvento string

const (
	EventoSnapshot         TipoEvento = "snapshot"
	EventoCodigoCriado     TipoEvento = "codigo_criado"
	EventoCodigoAtualizado TipoEvento = "codigo_atualizado"
	EventoHeartbeat        TipoEvento = "heartbeat"
)

// Evento é a notificação de mudança entregue aos assinantes do canal em tempo real.
type Evento struct {
	Tipo    TipoEvento `json:"type"`
	Codigo  *Codigo    `json:"code,omitempty"`
	Codigos []Codigo   `json:"codes,omitempty"`
	Em      time.Time  `json:"at"`
}

type ContagemStatus struct {
	Ativos    int64 `json:"active"`
	Usados    int64 `json:"used"`
	Invalidos int64 `json:"invalid"`
	Total     int64 `json:"total"`
}

type Totais struct {
	Submissoes int64 `json:"submissions"`
	Votos      int64 `json:"votes"`
	Copias     int64 `json:"copies"`
}

type Painel struct {
	Contagens ContagemStatus       `json:"counts"`
	Totais    Totais               `json:"totals"`
	Usuarios  []EstatisticaUsuario `json:"users"`
	Dias      []EstatisticaDiaria  `json:"days"`
	Codigos   []Codigo             `json:"codes"`
}

// Submissao reúne os dados brutos enviados por quem compartilha um código.
type Submissao struct {
	Codigo     string
	Autor      string
	Identidade string
}

func (Codigo) TableName() string { return "codigos" }

func (RegistroVoto) TableName() string { return "registros_voto" }

func (RegistroCopia) TableName() string { return "registros_copia" }

func (EstatisticaUsuario) TableName() string { return "estatisticas_usuario" }

func (EstatisticaDiaria) TableName() string { return "estatisticas_diarias" }

func (PalavraBloqueada) TableName() string { return "palavras_bloqueadas" }
