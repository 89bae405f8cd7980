// Pacote identidade deriva o pseudo-identificador diário usado na deduplicação de votos e cópias.
// É um sinal antiabuso de melhor esforço, nunca uma credencial.
package identidade

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marcelojr/mural-convites/internal/domain"
)

const (
	msPorDia = 86_400_000
	tamanho  = 22
)

// Derivador calcula HMAC-SHA256(segredo, ip-ua-dia) truncado; o dia é a janela de 24h desde a época, sem fuso.
type Derivador struct {
	segredo []byte
	clock   domain.Clock
}

func NewDerivador(segredo string, clock domain.Clock) *Derivador {
	return &Derivador{segredo: []byte(segredo), clock: clock}
}

func (d *Derivador) Derivar(ip, userAgent string) string {
	base := ip + "-" + userAgent + "-" + strconv.FormatInt(DiaBucket(d.clock.Agora()), 10)

	h := hmac.New(sha256.New, d.segredo)
	h.Write([]byte(base))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))[:tamanho]
}

// Resolver prefere a identidade enviada pelo cliente e cai na derivada da requisição.
func (d *Derivador) Resolver(r *http.Request, informada string) string {
	if informada = strings.TrimSpace(informada); informada != "" {
		return informada
	}
	return d.Derivar(ClientIP(r), r.UserAgent())
}

func DiaBucket(t time.Time) int64 {
	return t.UnixMilli() / msPorDia
}

// ClientIP usa o primeiro salto de X-Forwarded-For, depois X-Real-IP e por fim o RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		primeiro, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(primeiro); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
