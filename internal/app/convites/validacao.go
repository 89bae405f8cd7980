package convites

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	TamanhoMaximoCodigo = 20
	TamanhoMaximoAutor  = 50
)

var formatoCodigo = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

var sequenciasTeclado = []string{
	"qwer", "wert", "erty", "rtyu", "tyui", "yuio", "uiop",
	"asdf", "sdfg", "dfgh", "fghj", "ghjk", "hjkl",
	"zxcv", "xcvb", "cvbn", "vbnm",
}

// Normalizar produz a forma usada na detecção de duplicados.
func Normalizar(codigo string) string {
	return strings.ToUpper(strings.TrimSpace(codigo))
}

func ValidarFormato(codigo string) error {
	if !formatoCodigo.MatchString(codigo) {
		return fmt.Errorf("%w: use de 1 a %d letras ou numeros", ErrFormatoInvalido, TamanhoMaximoCodigo)
	}
	return nil
}

func ValidarAutor(autor string) error {
	if utf8.RuneCountInString(autor) > TamanhoMaximoAutor {
		return fmt.Errorf("%w: nome com mais de %d caracteres", ErrFormatoInvalido, TamanhoMaximoAutor)
	}
	return nil
}

// MotivoBaixaQualidade devolve a regra violada ou "" quando o código parece legítimo.
// Espera um código que já passou por ValidarFormato.
func MotivoBaixaQualidade(codigo string) string {
	switch {
	case temRepeticao(codigo, 4):
		return "caractere repetido"
	case temSequenciaNumerica(codigo, 4):
		return "sequencia numerica"
	case len(codigo) < 4 && apenas(codigo, ehDigito):
		return "numerico curto demais"
	case len(codigo) < 4 && apenas(codigo, ehLetra):
		return "alfabetico curto demais"
	}

	minusculo := strings.ToLower(codigo)
	for _, seq := range sequenciasTeclado {
		if strings.Contains(minusculo, seq) {
			return "sequencia de teclado"
		}
	}
	return ""
}

// TermosBloqueados lista, sem repetição e na ordem da lista, as palavras contidas no texto.
func TermosBloqueados(texto string, palavras []string) []string {
	if texto == "" {
		return nil
	}
	minusculo := strings.ToLower(texto)
	vistos := make(map[string]struct{}, len(palavras))
	var termos []string
	for _, p := range palavras {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := vistos[p]; ok {
			continue
		}
		if strings.Contains(minusculo, p) {
			vistos[p] = struct{}{}
			termos = append(termos, p)
		}
	}
	return termos
}

func temRepeticao(s string, n int) bool {
	seguidos := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			seguidos++
			if seguidos >= n {
				return true
			}
			continue
		}
		seguidos = 1
	}
	return false
}

// temSequenciaNumerica procura n dígitos consecutivos crescendo ou decrescendo de um em um.
func temSequenciaNumerica(s string, n int) bool {
	subindo, descendo := 1, 1
	for i := 1; i < len(s); i++ {
		if !ehDigito(s[i]) || !ehDigito(s[i-1]) {
			subindo, descendo = 1, 1
			continue
		}
		switch int(s[i]) - int(s[i-1]) {
		case 1:
			subindo++
			descendo = 1
		case -1:
			descendo++
			subindo = 1
		default:
			subindo, descendo = 1, 1
		}
		if subindo >= n || descendo >= n {
			return true
		}
	}
	return false
}

func apenas(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return s != ""
}

func ehDigito(c byte) bool { return c >= '0' && c <= '9' }

func ehLetra(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
