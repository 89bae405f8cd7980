package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator emite ULIDs monotônicos; a ordem lexicográfica acompanha a ordem de criação dos códigos.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	agora   func() time.Time
}

func NewGenerator() *Generator {
	return NewGeneratorWithClock(func() time.Time { return time.Now().UTC() })
}

func NewGeneratorWithClock(agora func() time.Time) *Generator {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		entropy: ulid.Monotonic(src, 0),
		agora:   agora,
	}
}

func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.agora()), g.entropy).String()
}

// Valido confere se a string recebida de fora tem o formato de um ULID.
func Valido(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func DefaultGenerator() *Generator {
	defaultOnce.Do(func() {
		defaultGen = NewGenerator()
	})
	return defaultGen
}
