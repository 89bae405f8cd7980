// Pacote eventos distribui as notificações de mudança de códigos aos clientes conectados no stream.
package eventos

import (
	"context"
	"sync"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/ids"
	"github.com/marcelojr/mural-convites/internal/platform/logger"
	"github.com/marcelojr/mural-convites/internal/platform/metrics"
)

const (
	bufferHub     = 1000
	bufferCliente = 64
	esperaCliente = 50 * time.Millisecond
)

// Cliente é uma conexão de stream registrada no hub. Eventos é fechado quando o hub o desconecta.
type Cliente struct {
	ID          string
	Eventos     chan domain.Evento
	ConectadoEm time.Time
}

// Hub recebe eventos por Publicar e os repassa a todos os clientes sem bloquear quem publica.
// Um cliente que não drena o buffer é desconectado em vez de perder eventos em silêncio.
type Hub struct {
	mu       sync.RWMutex
	clientes map[string]*Cliente
	eventos  chan domain.Evento

	fechadoMu sync.RWMutex
	fechado   bool

	heartbeat     time.Duration
	esperaCliente time.Duration
	clock         domain.Clock
	wg            sync.WaitGroup
}

func NewHub(heartbeat time.Duration, clock domain.Clock) *Hub {
	return &Hub{
		clientes:      make(map[string]*Cliente),
		eventos:       make(chan domain.Evento, bufferHub),
		heartbeat:     heartbeat,
		esperaCliente: esperaCliente,
		clock:         clock,
	}
}

// Start dispara o laço de broadcast e o heartbeat até ctx encerrar ou Shutdown fechar a fila.
// O laço entra no WaitGroup antes de retornar, então um Shutdown logo em seguida espera a drenagem.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.loop(ctx)
}

func (h *Hub) loop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case evento, ok := <-h.eventos:
			if !ok {
				h.desconectarTodos()
				return
			}
			h.broadcast(evento)
		case <-ticker.C:
			h.broadcast(domain.Evento{Tipo: domain.EventoHeartbeat, Em: h.clock.Agora()})
		case <-ctx.Done():
			h.desconectarTodos()
			return
		}
	}
}

// Shutdown para de aceitar eventos e espera o laço drenar a fila.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.fechadoMu.Lock()
	if h.fechado {
		h.fechadoMu.Unlock()
		return nil
	}
	h.fechado = true
	close(h.eventos)
	h.fechadoMu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("hub: tempo esgotado drenando eventos")
		return ctx.Err()
	}
}

func (h *Hub) Publicar(_ context.Context, evento domain.Evento) error {
	h.fechadoMu.RLock()
	defer h.fechadoMu.RUnlock()
	if h.fechado {
		return nil
	}

	select {
	case h.eventos <- evento:
	default:
		logger.Error("hub: fila de eventos cheia, descartando", "tipo", evento.Tipo)
	}
	return nil
}

// Repassar adapta Publicar para o handler do canal Redis.
func (h *Hub) Repassar(evento domain.Evento) {
	_ = h.Publicar(context.Background(), evento)
}

func (h *Hub) Conectar() *Cliente {
	cliente := &Cliente{
		ID:          ids.DefaultGenerator().New(),
		Eventos:     make(chan domain.Evento, bufferCliente),
		ConectadoEm: h.clock.Agora(),
	}

	h.mu.Lock()
	h.clientes[cliente.ID] = cliente
	total := len(h.clientes)
	h.mu.Unlock()

	metrics.StreamClientConnected()
	logger.Info("cliente de stream conectado", "cliente_id", cliente.ID, "total", total)
	return cliente
}

func (h *Hub) Desconectar(id string) {
	h.mu.Lock()
	cliente, ok := h.clientes[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clientes, id)
	total := len(h.clientes)
	h.mu.Unlock()

	close(cliente.Eventos)
	metrics.StreamClientDisconnected()
	logger.Info("cliente de stream desconectado", "cliente_id", id, "total", total)
}

func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientes)
}

// broadcast espera até esperaCliente por um buffer cheio. Quem continua cheio é desconectado:
// o fim do stream faz o navegador reconectar e receber um snapshot novo, sem lacunas silenciosas.
func (h *Hub) broadcast(evento domain.Evento) {
	var lentos []string

	h.mu.RLock()
	for _, cliente := range h.clientes {
		select {
		case cliente.Eventos <- evento:
			continue
		default:
		}

		espera := time.NewTimer(h.esperaCliente)
		select {
		case cliente.Eventos <- evento:
		case <-espera.C:
			lentos = append(lentos, cliente.ID)
		}
		espera.Stop()
	}
	h.mu.RUnlock()

	for _, id := range lentos {
		logger.Warn("hub: cliente lento desconectado para ressincronizar", "cliente_id", id, "tipo", evento.Tipo)
		h.Desconectar(id)
	}
}

func (h *Hub) desconectarTodos() {
	h.mu.Lock()
	clientes := h.clientes
	h.clientes = make(map[string]*Cliente)
	h.mu.Unlock()

	for _, cliente := range clientes {
		close(cliente.Eventos)
		metrics.StreamClientDisconnected()
	}
}

var _ domain.Notificador = (*Hub)(nil)
