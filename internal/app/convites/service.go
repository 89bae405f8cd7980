// Pacote convites implementa as regras do mural: submissão, votos, cópias, ciclo de vida e painel.
package convites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/ids"
	"github.com/marcelojr/mural-convites/internal/platform/logger"
	"github.com/marcelojr/mural-convites/internal/platform/metrics"
)

const (
	limiteUsuariosPainel = 100
	limiteDiasPainel     = 30
)

// Dependencias agrupa os colaboradores do Service. Contador, Fila, Antifraude e Notificador são opcionais.
type Dependencias struct {
	Codigos            domain.CodigoRepository
	Ledger             domain.Ledger
	Estatisticas       domain.EstatisticaRepository
	Palavras           domain.PalavraRepository
	Contador           domain.Contador
	Fila               domain.Fila
	Antifraude         domain.Antifraude
	Notificador        domain.Notificador
	Clock              domain.Clock
	IDs                *ids.Generator
	PalavrasBloqueadas []string
}

// Service concentra as regras do mural e delega persistência, deduplicação e notificação às portas do domínio.
type Service struct {
	codigos       domain.CodigoRepository
	ledger        domain.Ledger
	estatisticas  domain.EstatisticaRepository
	palavras      domain.PalavraRepository
	contador      domain.Contador
	fila          domain.Fila
	antifraude    domain.Antifraude
	notificador   domain.Notificador
	clock         domain.Clock
	ids           *ids.Generator
	palavrasFixas []string
}

func NewService(d Dependencias) *Service {
	if d.IDs == nil {
		d.IDs = ids.DefaultGenerator()
	}
	return &Service{
		codigos:       d.Codigos,
		ledger:        d.Ledger,
		estatisticas:  d.Estatisticas,
		palavras:      d.Palavras,
		contador:      d.Contador,
		fila:          d.Fila,
		antifraude:    d.Antifraude,
		notificador:   d.Notificador,
		clock:         d.Clock,
		ids:           d.IDs,
		palavrasFixas: d.PalavrasBloqueadas,
	}
}

// Submeter valida o código por completo antes de qualquer escrita e só então o grava como ativo.
func (s *Service) Submeter(ctx context.Context, sub domain.Submissao) (domain.Codigo, error) {
	codigo, err := s.submeter(ctx, sub)
	metrics.ObserveSubmission(resultado(err))
	return codigo, err
}

func (s *Service) submeter(ctx context.Context, sub domain.Submissao) (domain.Codigo, error) {
	bruto := strings.TrimSpace(sub.Codigo)
	autor := strings.TrimSpace(sub.Autor)

	if err := ValidarFormato(bruto); err != nil {
		return domain.Codigo{}, err
	}
	if err := ValidarAutor(autor); err != nil {
		return domain.Codigo{}, err
	}
	if motivo := MotivoBaixaQualidade(bruto); motivo != "" {
		return domain.Codigo{}, &RejeicaoError{Motivo: motivo}
	}

	palavras, err := s.PalavrasBloqueadas(ctx)
	if err != nil {
		return domain.Codigo{}, err
	}
	if termos := TermosBloqueados(bruto, palavras); len(termos) > 0 {
		return domain.Codigo{}, &RejeicaoError{Motivo: "palavra bloqueada no codigo", Termos: termos}
	}
	if termos := TermosBloqueados(autor, palavras); len(termos) > 0 {
		return domain.Codigo{}, &RejeicaoError{Motivo: "palavra bloqueada no nome", Termos: termos}
	}

	if err := s.validarAntifraude(ctx, domain.AcaoSubmeter, sub.Identidade); err != nil {
		return domain.Codigo{}, err
	}

	normalizado := Normalizar(bruto)
	existente, err := s.codigos.BuscarPorNormalizado(ctx, normalizado)
	switch {
	case err == nil:
		return domain.Codigo{}, &ConflitoError{Codigo: existente}
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Codigo{}, indisponivel("buscar codigo", err)
	}

	agora := s.clock.Agora()
	novo := domain.Codigo{
		ID:           domain.CodigoID(s.ids.New()),
		Codigo:       bruto,
		Normalizado:  normalizado,
		Status:       domain.StatusAtivo,
		Autor:        autor,
		CriadoEm:     agora,
		AtualizadoEm: agora,
	}

	if err := s.codigos.Criar(ctx, novo); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Outra requisição gravou o mesmo código entre a busca e o insert.
			return domain.Codigo{}, s.conflitoConcorrente(ctx, normalizado)
		}
		return domain.Codigo{}, indisponivel("criar codigo", err)
	}

	s.incrementarTotal(ctx, CounterKeySubmissoes)
	s.registrarAtividade(ctx, domain.Atividade{
		Tipo:       domain.AtividadeSubmissao,
		Identidade: sub.Identidade,
		CodigoID:   novo.ID,
		Em:         agora,
	})
	s.notificar(ctx, domain.EventoCodigoCriado, novo)

	return novo, nil
}

func (s *Service) conflitoConcorrente(ctx context.Context, normalizado string) error {
	existente, err := s.codigos.BuscarPorNormalizado(ctx, normalizado)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCodigoDuplicado, normalizado)
	}
	return &ConflitoError{Codigo: existente}
}

// AplicarVoto conta o voto, atualiza os contadores únicos via ledger e avalia a transição de status
// sobre o snapshot já incrementado.
func (s *Service) AplicarVoto(ctx context.Context, id domain.CodigoID, tipo domain.TipoVoto, identidade string) (domain.Codigo, error) {
	codigo, err := s.aplicarVoto(ctx, id, tipo, identidade)
	rotulo := string(tipo)
	if !tipo.Valido() {
		rotulo = "unknown"
	}
	metrics.ObserveVoteRequest(rotulo, resultado(err))
	return codigo, err
}

func (s *Service) aplicarVoto(ctx context.Context, id domain.CodigoID, tipo domain.TipoVoto, identidade string) (domain.Codigo, error) {
	if !tipo.Valido() {
		return domain.Codigo{}, fmt.Errorf("%w: %q", ErrTipoVotoInvalido, tipo)
	}
	if err := s.validarAntifraude(ctx, domain.AcaoVotar, identidade); err != nil {
		return domain.Codigo{}, err
	}
	if _, err := s.buscar(ctx, id); err != nil {
		return domain.Codigo{}, err
	}

	agora := s.clock.Agora()
	registro := domain.RegistroVoto{
		CodigoID:   id,
		Identidade: identidade,
		Tipo:       tipo,
		CriadoEm:   agora,
	}
	unico, err := s.ledger.RegistrarVoto(ctx, registro)
	if err != nil {
		return domain.Codigo{}, indisponivel("registrar voto", err)
	}

	atualizado, err := s.codigos.IncrementarVoto(ctx, id, tipo, unico)
	if err != nil {
		// A entrada do ledger só vale para voto contado; sem isso a nova tentativa nunca seria única.
		if unico {
			if errDesfazer := s.ledger.DesfazerVoto(ctx, registro); errDesfazer != nil {
				logger.Error("falha ao desfazer registro de voto", "codigo_id", id, "tipo", tipo, "error", errDesfazer)
			}
		}
		return domain.Codigo{}, s.traduzir("incrementar voto", id, err)
	}

	if proximo := ProximoStatus(atualizado.Status, atualizado.Votos, tipo); proximo != atualizado.Status {
		atualizado, err = s.transicionar(ctx, atualizado, proximo, agora)
		if err != nil {
			return domain.Codigo{}, err
		}
	}

	s.incrementarTotal(ctx, CounterKeyVotos)
	s.registrarAtividade(ctx, domain.Atividade{
		Tipo:       domain.AtividadeVoto,
		Identidade: identidade,
		CodigoID:   id,
		Em:         agora,
	})
	s.notificar(ctx, domain.EventoCodigoAtualizado, atualizado)

	return atualizado, nil
}

// transicionar aplica o compare-and-set a partir de active. Se outra requisição já trocou o status,
// relê a linha para devolver o estado vencedor.
func (s *Service) transicionar(ctx context.Context, codigo domain.Codigo, para domain.Status, agora time.Time) (domain.Codigo, error) {
	trocou, err := s.codigos.TransicionarStatus(ctx, codigo.ID, domain.StatusAtivo, para)
	if err != nil {
		return domain.Codigo{}, indisponivel("transicionar status", err)
	}
	if !trocou {
		return s.buscar(ctx, codigo.ID)
	}

	codigo.Status = para
	metrics.IncStatusTransition(string(para))
	logger.Info("codigo mudou de status", "codigo_id", codigo.ID, "status", para)
	s.registrarAtividade(ctx, domain.Atividade{
		Tipo:     domain.AtividadeTransicao,
		CodigoID: codigo.ID,
		Status:   para,
		Em:       agora,
	})
	return codigo, nil
}

// AplicarCopia nunca altera o status; a cópia única depende do ledger.
func (s *Service) AplicarCopia(ctx context.Context, id domain.CodigoID, identidade string) (domain.Codigo, error) {
	codigo, err := s.aplicarCopia(ctx, id, identidade)
	metrics.ObserveCopyRequest(resultado(err))
	return codigo, err
}

func (s *Service) aplicarCopia(ctx context.Context, id domain.CodigoID, identidade string) (domain.Codigo, error) {
	if err := s.validarAntifraude(ctx, domain.AcaoCopiar, identidade); err != nil {
		return domain.Codigo{}, err
	}
	if _, err := s.buscar(ctx, id); err != nil {
		return domain.Codigo{}, err
	}

	agora := s.clock.Agora()
	registro := domain.RegistroCopia{
		CodigoID:   id,
		Identidade: identidade,
		CriadoEm:   agora,
	}
	unica, err := s.ledger.RegistrarCopia(ctx, registro)
	if err != nil {
		return domain.Codigo{}, indisponivel("registrar copia", err)
	}

	atualizado, err := s.codigos.IncrementarCopia(ctx, id, unica)
	if err != nil {
		if unica {
			if errDesfazer := s.ledger.DesfazerCopia(ctx, registro); errDesfazer != nil {
				logger.Error("falha ao desfazer registro de copia", "codigo_id", id, "error", errDesfazer)
			}
		}
		return domain.Codigo{}, s.traduzir("incrementar copia", id, err)
	}

	s.incrementarTotal(ctx, CounterKeyCopias)
	s.registrarAtividade(ctx, domain.Atividade{
		Tipo:       domain.AtividadeCopia,
		Identidade: identidade,
		CodigoID:   id,
		Em:         agora,
	})
	s.notificar(ctx, domain.EventoCodigoAtualizado, atualizado)

	return atualizado, nil
}

func (s *Service) ListarAtivos(ctx context.Context) ([]domain.Codigo, error) {
	codigos, err := s.codigos.ListarPorStatus(ctx, domain.StatusAtivo)
	if err != nil {
		return nil, indisponivel("listar ativos", err)
	}
	return codigos, nil
}

// Painel monta o agregado do dashboard. Sem Contador, os totais saem da soma das estatísticas diárias.
func (s *Service) Painel(ctx context.Context) (domain.Painel, error) {
	porStatus, err := s.codigos.ContarPorStatus(ctx)
	if err != nil {
		return domain.Painel{}, indisponivel("contar por status", err)
	}
	contagens := domain.ContagemStatus{
		Ativos:    porStatus[domain.StatusAtivo],
		Usados:    porStatus[domain.StatusUsado],
		Invalidos: porStatus[domain.StatusInvalido],
	}
	contagens.Total = contagens.Ativos + contagens.Usados + contagens.Invalidos

	usuarios, err := s.estatisticas.ListarUsuarios(ctx, limiteUsuariosPainel)
	if err != nil {
		return domain.Painel{}, indisponivel("listar usuarios", err)
	}
	dias, err := s.estatisticas.ListarDias(ctx, limiteDiasPainel)
	if err != nil {
		return domain.Painel{}, indisponivel("listar dias", err)
	}
	codigos, err := s.codigos.ListarTodos(ctx)
	if err != nil {
		return domain.Painel{}, indisponivel("listar codigos", err)
	}
	totais, err := s.totais(ctx)
	if err != nil {
		return domain.Painel{}, err
	}

	return domain.Painel{
		Contagens: contagens,
		Totais:    totais,
		Usuarios:  usuarios,
		Dias:      dias,
		Codigos:   codigos,
	}, nil
}

func (s *Service) totais(ctx context.Context) (domain.Totais, error) {
	if s.contador != nil {
		valores, err := s.contador.ObterTodos(ctx, counterKeysTotais())
		if err != nil {
			return domain.Totais{}, indisponivel("obter totais", err)
		}
		return domain.Totais{
			Submissoes: valores[CounterKeySubmissoes],
			Votos:      valores[CounterKeyVotos],
			Copias:     valores[CounterKeyCopias],
		}, nil
	}

	dias, err := s.estatisticas.ListarDias(ctx, 0)
	if err != nil {
		return domain.Totais{}, indisponivel("somar dias", err)
	}
	var t domain.Totais
	for _, d := range dias {
		t.Submissoes += d.Submissoes
		t.Votos += d.Votos
		t.Copias += d.Copias
	}
	return t, nil
}

// PalavrasBloqueadas une a lista da configuração com a mantida no banco, em minúsculas e sem repetição.
func (s *Service) PalavrasBloqueadas(ctx context.Context) ([]string, error) {
	var doBanco []string
	if s.palavras != nil {
		var err error
		doBanco, err = s.palavras.Listar(ctx)
		if err != nil {
			return nil, indisponivel("listar palavras", err)
		}
	}

	vistos := make(map[string]struct{}, len(s.palavrasFixas)+len(doBanco))
	uniao := make([]string, 0, len(s.palavrasFixas)+len(doBanco))
	for _, lista := range [][]string{s.palavrasFixas, doBanco} {
		for _, p := range lista {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			if _, ok := vistos[p]; ok {
				continue
			}
			vistos[p] = struct{}{}
			uniao = append(uniao, p)
		}
	}
	return uniao, nil
}

func (s *Service) AdicionarPalavra(ctx context.Context, palavra string) error {
	palavra = strings.TrimSpace(palavra)
	if palavra == "" {
		return fmt.Errorf("%w: palavra vazia", ErrFormatoInvalido)
	}
	if s.palavras == nil {
		return fmt.Errorf("%w: repositorio de palavras ausente", ErrArmazenamentoIndisponivel)
	}
	if err := s.palavras.Adicionar(ctx, palavra); err != nil {
		return indisponivel("adicionar palavra", err)
	}
	logger.Info("palavra bloqueada adicionada", "palavra", strings.ToLower(palavra))
	return nil
}

func (s *Service) buscar(ctx context.Context, id domain.CodigoID) (domain.Codigo, error) {
	codigo, err := s.codigos.BuscarPorID(ctx, id)
	if err != nil {
		return domain.Codigo{}, s.traduzir("buscar codigo", id, err)
	}
	return codigo, nil
}

func (s *Service) traduzir(op string, id domain.CodigoID, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCodigoNaoEncontrado, id)
	}
	return indisponivel(op, err)
}

func (s *Service) validarAntifraude(ctx context.Context, acao domain.Acao, identidade string) error {
	if s.antifraude == nil {
		return nil
	}
	err := s.antifraude.Validar(ctx, acao, identidade)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLimiteExcedido):
		return err
	default:
		return indisponivel("antifraude", err)
	}
}

// As escritas abaixo acontecem depois que a mutação principal foi confirmada; falhas são logadas
// para que o cliente não repita uma ação que já foi contada.

func (s *Service) incrementarTotal(ctx context.Context, chave string) {
	if s.contador == nil {
		return
	}
	if _, err := s.contador.Incrementar(ctx, chave, 1); err != nil {
		logger.Error("falha ao incrementar total", "chave", chave, "error", err)
	}
}

// registrarAtividade publica na fila quando o modo assíncrono está ligado; caso contrário aplica direto.
func (s *Service) registrarAtividade(ctx context.Context, atividade domain.Atividade) {
	var err error
	if s.fila != nil {
		err = s.fila.PublicarAtividade(ctx, atividade)
	} else {
		err = s.estatisticas.Aplicar(ctx, atividade)
	}
	if err != nil {
		logger.Error("falha ao registrar atividade", "tipo", atividade.Tipo, "codigo_id", atividade.CodigoID, "error", err)
	}
}

func (s *Service) notificar(ctx context.Context, tipo domain.TipoEvento, codigo domain.Codigo) {
	if s.notificador == nil {
		return
	}
	evento := domain.Evento{Tipo: tipo, Codigo: &codigo, Em: s.clock.Agora()}
	if err := s.notificador.Publicar(ctx, evento); err != nil {
		logger.Error("falha ao notificar assinantes", "tipo", tipo, "codigo_id", codigo.ID, "error", err)
	}
}

func resultado(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrFormatoInvalido), errors.Is(err, ErrTipoVotoInvalido):
		return "invalid"
	case errors.Is(err, ErrConteudoRejeitado):
		return "rejected"
	case errors.Is(err, ErrCodigoDuplicado):
		return "conflict"
	case errors.Is(err, ErrCodigoNaoEncontrado):
		return "not_found"
	case errors.Is(err, domain.ErrLimiteExcedido):
		return "rate_limited"
	default:
		return "error"
	}
}

var _ domain.ConviteService = (*Service)(nil)
