package domain

import (
	"context"
	"time"
)

type CodigoRepository interface {
	Criar(ctx context.Context, c Codigo) error
	BuscarPorID(ctx context.Context, id CodigoID) (Codigo, error)
	BuscarPorNormalizado(ctx context.Context, normalizado string) (Codigo, error)
	ListarPorStatus(ctx context.Context, status Status) ([]Codigo, error)
	ListarTodos(ctx context.Context) ([]Codigo, error)
	ContarPorStatus(ctx context.Context) (map[Status]int64, error)
	// IncrementarVoto soma 1 ao contador bruto do tipo e, se unico, ao deduplicado; devolve a linha já atualizada.
	IncrementarVoto(ctx context.Context, id CodigoID, tipo TipoVoto, unico bool) (Codigo, error)
	IncrementarCopia(ctx context.Context, id CodigoID, unico bool) (Codigo, error)
	// TransicionarStatus só altera a linha se o status atual for `de`; o bool indica se houve troca.
	TransicionarStatus(ctx context.Context, id CodigoID, de, para Status) (bool, error)
}

// Ledger registra quem já votou/copiou; o retorno indica se a entrada é nova.
type Ledger interface {
	RegistrarVoto(ctx context.Context, registro RegistroVoto) (bool, error)
	RegistrarCopia(ctx context.Context, registro RegistroCopia) (bool, error)
	// DesfazerVoto e DesfazerCopia removem a entrada cujo incremento não chegou a ser gravado.
	DesfazerVoto(ctx context.Context, registro RegistroVoto) error
	DesfazerCopia(ctx context.Context, registro RegistroCopia) error
}

type EstatisticaRepository interface {
	Aplicar(ctx context.Context, atividade Atividade) error
	ListarUsuarios(ctx context.Context, limite int) ([]EstatisticaUsuario, error)
	ListarDias(ctx context.Context, limite int) ([]EstatisticaDiaria, error)
}

type PalavraRepository interface {
	Listar(ctx context.Context) ([]string, error)
	Adicionar(ctx context.Context, palavra string) error
}

type Contador interface {
	Incrementar(ctx context.Context, chave string, delta int64) (int64, error)
	Obter(ctx context.Context, chave string) (int64, error)
	ObterTodos(ctx context.Context, chaves []string) (map[string]int64, error)
}

type Fila interface {
	PublicarAtividade(ctx context.Context, atividade Atividade) error
	ConsumirAtividades(ctx context.Context, handler func(context.Context, Atividade) error) error
}

type Acao string

const (
	AcaoSubmeter Acao = "submeter"
	AcaoVotar    Acao = "votar"
	AcaoCopiar   Acao = "copiar"
)

type Antifraude interface {
	Validar(ctx context.Context, acao Acao, identidade string) error
}

type Notificador interface {
	Publicar(ctx context.Context, evento Evento) error
}

type Clock interface {
	Agora() time.Time
}

type ConviteService interface {
	Submeter(ctx context.Context, s Submissao) (Codigo, error)
	AplicarVoto(ctx context.Context, id CodigoID, tipo TipoVoto, identidade string) (Codigo, error)
	AplicarCopia(ctx context.Context, id CodigoID, identidade string) (Codigo, error)
	ListarAtivos(ctx context.Context) ([]Codigo, error)
	Painel(ctx context.Context) (Painel, error)
	PalavrasBloqueadas(ctx context.Context) ([]string, error)
	AdicionarPalavra(ctx context.Context, palavra string) error
}
