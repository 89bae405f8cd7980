package convites

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/clock"
	"github.com/marcelojr/mural-convites/internal/platform/ids"
)

type serviceDeps struct {
	baseTime     time.Time
	clock        *clock.Fixo
	idGen        *ids.Generator
	codigos      *inMemoryCodigoRepo
	ledger       *inMemoryLedger
	estatisticas *inMemoryEstatisticas
	palavras     *inMemoryPalavras
	contador     *inMemoryContador
	notificador  *recordingNotificador
	antifraude   *antifraudeFixa
}

func newServiceDeps() *serviceDeps {
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	relogio := clock.NewFixo(base)
	return &serviceDeps{
		baseTime:     base,
		clock:        relogio,
		idGen:        ids.NewGeneratorWithClock(relogio.Agora),
		codigos:      newInMemoryCodigoRepo(),
		ledger:       newInMemoryLedger(),
		estatisticas: newInMemoryEstatisticas(),
		palavras:     &inMemoryPalavras{},
		contador:     newInMemoryContador(),
		notificador:  &recordingNotificador{},
		antifraude:   &antifraudeFixa{},
	}
}

func (d *serviceDeps) dependencias() Dependencias {
	return Dependencias{
		Codigos:      d.codigos,
		Ledger:       d.ledger,
		Estatisticas: d.estatisticas,
		Palavras:     d.palavras,
		Contador:     d.contador,
		Antifraude:   d.antifraude,
		Notificador:  d.notificador,
		Clock:        d.clock,
		IDs:          d.idGen,
	}
}

func (d *serviceDeps) service() *Service {
	return NewService(d.dependencias())
}

type inMemoryCodigoRepo struct {
	mu     sync.Mutex
	itens  map[domain.CodigoID]domain.Codigo
	falhar error

	// falhasIncremento faz os próximos N incrementos falharem sem alterar a linha.
	falhasIncremento int
}

func (r *inMemoryCodigoRepo) falhaDeIncremento() error {
	if r.falhasIncremento > 0 {
		r.falhasIncremento--
		return errBancoFora
	}
	return nil
}

func newInMemoryCodigoRepo() *inMemoryCodigoRepo {
	return &inMemoryCodigoRepo{itens: make(map[domain.CodigoID]domain.Codigo)}
}

func (r *inMemoryCodigoRepo) Criar(_ context.Context, c domain.Codigo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.falhar != nil {
		return r.falhar
	}
	for _, existente := range r.itens {
		if existente.Normalizado == c.Normalizado {
			return domain.ErrConflict
		}
	}
	r.itens[c.ID] = c
	return nil
}

func (r *inMemoryCodigoRepo) BuscarPorID(_ context.Context, id domain.CodigoID) (domain.Codigo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.falhar != nil {
		return domain.Codigo{}, r.falhar
	}
	c, ok := r.itens[id]
	if !ok {
		return domain.Codigo{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *inMemoryCodigoRepo) BuscarPorNormalizado(_ context.Context, normalizado string) (domain.Codigo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.falhar != nil {
		return domain.Codigo{}, r.falhar
	}
	for _, c := range r.itens {
		if c.Normalizado == normalizado {
			return c, nil
		}
	}
	return domain.Codigo{}, domain.ErrNotFound
}

func (r *inMemoryCodigoRepo) ListarPorStatus(_ context.Context, status domain.Status) ([]domain.Codigo, error) {
	todos, _ := r.ListarTodos(context.Background())
	var filtrados []domain.Codigo
	for _, c := range todos {
		if c.Status == status {
			filtrados = append(filtrados, c)
		}
	}
	return filtrados, nil
}

func (r *inMemoryCodigoRepo) ListarTodos(_ context.Context) ([]domain.Codigo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lista := make([]domain.Codigo, 0, len(r.itens))
	for _, c := range r.itens {
		lista = append(lista, c)
	}
	sort.Slice(lista, func(i, j int) bool { return lista[i].ID > lista[j].ID })
	return lista, nil
}

func (r *inMemoryCodigoRepo) ContarPorStatus(_ context.Context) (map[domain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totais := make(map[domain.Status]int64)
	for _, c := range r.itens {
		totais[c.Status]++
	}
	return totais, nil
}

func (r *inMemoryCodigoRepo) IncrementarVoto(_ context.Context, id domain.CodigoID, tipo domain.TipoVoto, unico bool) (domain.Codigo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.falhaDeIncremento(); err != nil {
		return domain.Codigo{}, err
	}
	c, ok := r.itens[id]
	if !ok {
		return domain.Codigo{}, domain.ErrNotFound
	}
	if tipo == domain.VotoFuncionou {
		c.Votos.Funcionou++
		if unico {
			c.Votos.UnicosFuncionou++
		}
	} else {
		c.Votos.NaoFuncionou++
		if unico {
			c.Votos.UnicosNaoFuncionou++
		}
	}
	r.itens[id] = c
	return c, nil
}

func (r *inMemoryCodigoRepo) IncrementarCopia(_ context.Context, id domain.CodigoID, unico bool) (domain.Codigo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.falhaDeIncremento(); err != nil {
		return domain.Codigo{}, err
	}
	c, ok := r.itens[id]
	if !ok {
		return domain.Codigo{}, domain.ErrNotFound
	}
	c.Copias++
	if unico {
		c.CopiasUnicas++
	}
	r.itens[id] = c
	return c, nil
}

func (r *inMemoryCodigoRepo) TransicionarStatus(_ context.Context, id domain.CodigoID, de, para domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.itens[id]
	if !ok || c.Status != de {
		return false, nil
	}
	c.Status = para
	r.itens[id] = c
	return true, nil
}

func (r *inMemoryCodigoRepo) definirStatus(id domain.CodigoID, status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.itens[id]
	c.Status = status
	r.itens[id] = c
}

type inMemoryLedger struct {
	mu     sync.Mutex
	votos  map[domain.RegistroVoto]struct{}
	copias map[domain.RegistroCopia]struct{}
}

func newInMemoryLedger() *inMemoryLedger {
	return &inMemoryLedger{
		votos:  make(map[domain.RegistroVoto]struct{}),
		copias: make(map[domain.RegistroCopia]struct{}),
	}
}

func (l *inMemoryLedger) RegistrarVoto(_ context.Context, r domain.RegistroVoto) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.CriadoEm = time.Time{}
	if _, ok := l.votos[r]; ok {
		return false, nil
	}
	l.votos[r] = struct{}{}
	return true, nil
}

func (l *inMemoryLedger) RegistrarCopia(_ context.Context, r domain.RegistroCopia) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.CriadoEm = time.Time{}
	if _, ok := l.copias[r]; ok {
		return false, nil
	}
	l.copias[r] = struct{}{}
	return true, nil
}

func (l *inMemoryLedger) DesfazerVoto(_ context.Context, r domain.RegistroVoto) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.CriadoEm = time.Time{}
	delete(l.votos, r)
	return nil
}

func (l *inMemoryLedger) DesfazerCopia(_ context.Context, r domain.RegistroCopia) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.CriadoEm = time.Time{}
	delete(l.copias, r)
	return nil
}

type inMemoryEstatisticas struct {
	mu         sync.Mutex
	atividades []domain.Atividade
	dias       []domain.EstatisticaDiaria
}

func newInMemoryEstatisticas() *inMemoryEstatisticas {
	return &inMemoryEstatisticas{}
}

func (e *inMemoryEstatisticas) Aplicar(_ context.Context, a domain.Atividade) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.atividades = append(e.atividades, a)
	return nil
}

func (e *inMemoryEstatisticas) ListarUsuarios(context.Context, int) ([]domain.EstatisticaUsuario, error) {
	return nil, nil
}

func (e *inMemoryEstatisticas) ListarDias(_ context.Context, limite int) ([]domain.EstatisticaDiaria, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limite > 0 && len(e.dias) > limite {
		return e.dias[:limite], nil
	}
	return e.dias, nil
}

func (e *inMemoryEstatisticas) tipos() []domain.TipoAtividade {
	e.mu.Lock()
	defer e.mu.Unlock()
	tipos := make([]domain.TipoAtividade, len(e.atividades))
	for i, a := range e.atividades {
		tipos[i] = a.Tipo
	}
	return tipos
}

type inMemoryPalavras struct {
	mu    sync.Mutex
	lista []string
}

func (p *inMemoryPalavras) Listar(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lista...), nil
}

func (p *inMemoryPalavras) Adicionar(_ context.Context, palavra string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lista = append(p.lista, palavra)
	return nil
}

type inMemoryContador struct {
	mu      sync.Mutex
	valores map[string]int64
}

func newInMemoryContador() *inMemoryContador {
	return &inMemoryContador{valores: make(map[string]int64)}
}

func (c *inMemoryContador) Incrementar(_ context.Context, chave string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valores[chave] += delta
	return c.valores[chave], nil
}

func (c *inMemoryContador) Obter(_ context.Context, chave string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valores[chave], nil
}

func (c *inMemoryContador) ObterTodos(_ context.Context, chaves []string) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]int64)
	for _, chave := range chaves {
		result[chave] = c.valores[chave]
	}
	return result, nil
}

type recordingFila struct {
	mu         sync.Mutex
	atividades []domain.Atividade
}

func (f *recordingFila) PublicarAtividade(_ context.Context, a domain.Atividade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atividades = append(f.atividades, a)
	return nil
}

func (f *recordingFila) ConsumirAtividades(ctx context.Context, handler func(context.Context, domain.Atividade) error) error {
	f.mu.Lock()
	pendentes := f.atividades
	f.atividades = nil
	f.mu.Unlock()
	for _, a := range pendentes {
		if err := handler(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (f *recordingFila) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.atividades)
}

type recordingNotificador struct {
	mu      sync.Mutex
	eventos []domain.Evento
}

func (n *recordingNotificador) Publicar(_ context.Context, e domain.Evento) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.eventos = append(n.eventos, e)
	return nil
}

func (n *recordingNotificador) ultimo() (domain.Evento, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.eventos) == 0 {
		return domain.Evento{}, false
	}
	return n.eventos[len(n.eventos)-1], true
}

type antifraudeFixa struct {
	err error
}

func (a *antifraudeFixa) Validar(context.Context, domain.Acao, string) error { return a.err }

var errBancoFora = errors.New("conexao recusada")
