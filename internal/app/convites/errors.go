package convites

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcelojr/mural-convites/internal/domain"
)

var (
	ErrFormatoInvalido           = errors.New("formato de codigo invalido")
	ErrConteudoRejeitado         = errors.New("conteudo rejeitado")
	ErrCodigoDuplicado           = errors.New("codigo ja cadastrado")
	ErrCodigoNaoEncontrado       = errors.New("codigo nao encontrado")
	ErrTipoVotoInvalido          = errors.New("tipo de voto invalido")
	ErrArmazenamentoIndisponivel = errors.New("armazenamento indisponivel")
)

// RejeicaoError detalha por que um código ou nome foi recusado; Termos lista as palavras bloqueadas encontradas.
type RejeicaoError struct {
	Motivo string
	Termos []string
}

func (e *RejeicaoError) Error() string {
	if len(e.Termos) == 0 {
		return fmt.Sprintf("%s: %s", ErrConteudoRejeitado, e.Motivo)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrConteudoRejeitado, e.Motivo, strings.Join(e.Termos, ", "))
}

func (e *RejeicaoError) Unwrap() error { return ErrConteudoRejeitado }

// ConflitoError carrega o código já existente com o mesmo valor normalizado.
type ConflitoError struct {
	Codigo domain.Codigo
}

func (e *ConflitoError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodigoDuplicado, e.Codigo.Codigo)
}

func (e *ConflitoError) Unwrap() error { return ErrCodigoDuplicado }

func indisponivel(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrArmazenamentoIndisponivel, op, err)
}
