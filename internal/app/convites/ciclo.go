package convites

import "github.com/marcelojr/mural-convites/internal/domain"

const (
	// LimiarUsado é o total de confirmações únicas que aposenta um código como usado.
	LimiarUsado = 4
	// MinimoFuncionouParaInvalidar evita invalidar um código no primeiro voto negativo.
	MinimoFuncionouParaInvalidar = 2
)

// ProximoStatus avalia as regras de transição sobre os contadores já incrementados pelo voto atual.
// Status terminais nunca são reavaliados.
func ProximoStatus(atual domain.Status, votos domain.Votos, tipo domain.TipoVoto) domain.Status {
	if atual.Terminal() {
		return atual
	}
	if votos.UnicosFuncionou >= LimiarUsado {
		return domain.StatusUsado
	}
	if tipo == domain.VotoNaoFuncionou &&
		votos.UnicosNaoFuncionou > votos.UnicosFuncionou &&
		votos.UnicosFuncionou >= MinimoFuncionouParaInvalidar {
		return domain.StatusInvalido
	}
	return atual
}
