// Pacote alvos mantém a contabilidade de alvos temporários: cada alvo surge num slot com prazo
// e é resolvido por acerto ou por expiração, nunca pelos dois.
package alvos

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrSlotInvalido   = errors.New("slot fora do tabuleiro")
	ErrSlotResolvendo = errors.New("slot em resolucao")
)

// Cancelavel é satisfeito por *time.Timer.
type Cancelavel interface {
	Stop() bool
}

type Agendador interface {
	Agendar(d time.Duration, f func()) Cancelavel
}

type agendadorReal struct{}

func (agendadorReal) Agendar(d time.Duration, f func()) Cancelavel {
	return time.AfterFunc(d, f)
}

func AgendadorReal() Agendador { return agendadorReal{} }

type Placar struct {
	Pontos      int
	Penalidades int
}

// Tabuleiro guarda, por slot, a sequência do ocupante atual e o handle da expiração pendente.
// Callbacks de timer rodam em outras goroutines; todo estado passa pelo mutex.
type Tabuleiro struct {
	mu         sync.Mutex
	agendador  Agendador
	seq        uint64
	ocupantes  []uint64
	expiracoes map[int]Cancelavel
	resolvendo map[int]struct{}
	placar     Placar

	// AoAcertar e AoExpirar rodam fora do lock, depois da contabilidade.
	AoAcertar func(slot int, seq uint64)
	AoExpirar func(slot int, seq uint64)
}

func NewTabuleiro(slots int, agendador Agendador) *Tabuleiro {
	if agendador == nil {
		agendador = AgendadorReal()
	}
	return &Tabuleiro{
		agendador:  agendador,
		ocupantes:  make([]uint64, slots),
		expiracoes: make(map[int]Cancelavel, slots),
		resolvendo: make(map[int]struct{}),
	}
}

// Surgir coloca um novo alvo no slot e agenda sua expiração. Um ocupante anterior é substituído
// sem penalidade; se o timer dele já tiver disparado, a checagem de sequência o anula.
func (t *Tabuleiro) Surgir(slot int, ttl time.Duration) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.ocupantes) {
		return 0, ErrSlotInvalido
	}
	if _, ok := t.resolvendo[slot]; ok {
		return 0, ErrSlotResolvendo
	}
	if anterior, ok := t.expiracoes[slot]; ok {
		anterior.Stop()
	}

	t.seq++
	seq := t.seq
	t.ocupantes[slot] = seq
	t.expiracoes[slot] = t.agendador.Agendar(ttl, func() { t.expirar(slot, seq) })
	return seq, nil
}

// Acertar pontua o ocupante atual. Sem expiração pendente, ou com o slot já em resolução, é no-op.
func (t *Tabuleiro) Acertar(slot int) bool {
	t.mu.Lock()
	expiracao, ok := t.expiracoes[slot]
	if !ok {
		t.mu.Unlock()
		return false
	}
	if _, ocupado := t.resolvendo[slot]; ocupado {
		t.mu.Unlock()
		return false
	}

	t.resolvendo[slot] = struct{}{}
	expiracao.Stop()
	delete(t.expiracoes, slot)
	seq := t.ocupantes[slot]
	t.ocupantes[slot] = 0
	t.mu.Unlock()

	if t.AoAcertar != nil {
		t.AoAcertar(slot, seq)
	}

	t.mu.Lock()
	t.placar.Pontos++
	delete(t.resolvendo, slot)
	t.mu.Unlock()
	return true
}

// expirar só penaliza se o slot ainda pertence ao ocupante para o qual o timer foi agendado.
func (t *Tabuleiro) expirar(slot int, seq uint64) {
	t.mu.Lock()
	if _, ok := t.expiracoes[slot]; !ok || t.ocupantes[slot] != seq {
		t.mu.Unlock()
		return
	}
	delete(t.expiracoes, slot)
	t.ocupantes[slot] = 0
	t.placar.Penalidades++
	t.mu.Unlock()

	if t.AoExpirar != nil {
		t.AoExpirar(slot, seq)
	}
}

func (t *Tabuleiro) Placar() Placar {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.placar
}

// Ocupante devolve a sequência do alvo vivo no slot.
func (t *Tabuleiro) Ocupante(slot int) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= len(t.ocupantes) {
		return 0, false
	}
	seq := t.ocupantes[slot]
	return seq, seq != 0
}
