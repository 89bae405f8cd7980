package clock

import (
	"sync"
	"time"
)

type SystemClock struct{}

func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Agora() time.Time {
	return time.Now().UTC()
}

// Fixo devolve sempre o mesmo instante até ser avançado; usado em testes e em replays.
type Fixo struct {
	mu    sync.Mutex
	agora time.Time
}

func NewFixo(t time.Time) *Fixo {
	return &Fixo{agora: t.UTC()}
}

func (f *Fixo) Agora() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agora
}

func (f *Fixo) Avancar(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agora = f.agora.Add(d)
}
