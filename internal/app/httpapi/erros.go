package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/marcelojr/mural-convites/internal/app/convites"
	"github.com/marcelojr/mural-convites/internal/domain"
)

type erroResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Terms  []string          `json:"terms,omitempty"`
	Code   *domain.Codigo    `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, convites.ErrFormatoInvalido),
		errors.Is(err, convites.ErrConteudoRejeitado),
		errors.Is(err, convites.ErrTipoVotoInvalido):
		return http.StatusBadRequest
	case errors.Is(err, convites.ErrCodigoNaoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, convites.ErrCodigoDuplicado):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLimiteExcedido):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func kindFromError(err error) string {
	switch {
	case errors.Is(err, convites.ErrFormatoInvalido):
		return "InvalidFormat"
	case errors.Is(err, convites.ErrConteudoRejeitado):
		return "RejectedContent"
	case errors.Is(err, convites.ErrTipoVotoInvalido):
		return "InvalidVoteType"
	case errors.Is(err, convites.ErrCodigoNaoEncontrado):
		return "NotFound"
	case errors.Is(err, convites.ErrCodigoDuplicado):
		return "Conflict"
	case errors.Is(err, domain.ErrLimiteExcedido):
		return "RateLimited"
	default:
		return "StorageUnavailable"
	}
}

// responderErro traduz o erro do serviço no corpo {error, kind, ...}. Falhas de armazenamento
// saem com mensagem opaca; o detalhe fica só no log.
func responderErro(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	body := erroResponse{Error: err.Error(), Kind: kindFromError(err)}

	var rejeicao *convites.RejeicaoError
	if errors.As(err, &rejeicao) {
		body.Terms = rejeicao.Termos
	}
	var conflito *convites.ConflitoError
	if errors.As(err, &conflito) {
		codigo := conflito.Codigo
		body.Code = &codigo
	}
	if status == http.StatusInternalServerError {
		body.Error = "armazenamento indisponivel"
	}

	responderJSON(w, status, body)
}

func erroValidacao(err error) erroResponse {
	body := erroResponse{Error: "payload invalido", Kind: "InvalidPayload"}
	var campos validator.ValidationErrors
	if errors.As(err, &campos) {
		body.Fields = make(map[string]string, len(campos))
		for _, c := range campos {
			body.Fields[c.Field()] = c.Tag()
		}
	}
	return body
}
