package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
)

// handleStream envia o snapshot dos códigos ativos e depois repassa os eventos do hub até o cliente sair.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		a.logger.Error("stream nao suportado", "err", err)
		http.Error(w, "stream nao suportado", http.StatusInternalServerError)
		return
	}

	// Conectar antes do snapshot: nenhuma mudança entre os dois passos se perde.
	cliente := a.stream.Conectar()
	defer a.stream.Desconectar(cliente.ID)

	ativos, err := a.service.ListarAtivos(ctx)
	if err != nil {
		a.logger.Error("erro ao montar snapshot do stream", "err", err)
		return
	}
	if ativos == nil {
		ativos = []domain.Codigo{}
	}
	snapshot := domain.Evento{Tipo: domain.EventoSnapshot, Codigos: ativos, Em: time.Now().UTC()}
	if err := enviarEvento(w, rc, snapshot); err != nil {
		return
	}

	for {
		select {
		case evento, ok := <-cliente.Eventos:
			if !ok {
				return
			}
			if err := enviarEvento(w, rc, evento); err != nil {
				a.logger.Info("cliente de stream saiu durante envio", "cliente_id", cliente.ID)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func enviarEvento(w http.ResponseWriter, rc *http.ResponseController, evento domain.Evento) error {
	payload, err := json.Marshal(evento)
	if err != nil {
		return fmt.Errorf("stream: serializar evento: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evento.Tipo, payload); err != nil {
		return err
	}
	return rc.Flush()
}
