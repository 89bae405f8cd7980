// Pacote httpapi expõe os handlers REST e o stream de eventos do mural de convites.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/marcelojr/mural-convites/internal/app/eventos"
	"github.com/marcelojr/mural-convites/internal/app/identidade"
	"github.com/marcelojr/mural-convites/internal/domain"
)

const limiteCorpo = 1 << 20

// Stream é a parte do hub de eventos usada pelo handler SSE.
type Stream interface {
	Conectar() *eventos.Cliente
	Desconectar(id string)
}

type Opcoes struct {
	Identidades *identidade.Derivador
	Stream      Stream
	AdminToken  string
	CORSOrigins []string
	// Extras recebe rotas de infraestrutura (readyz, metrics) montadas no mesmo router.
	Extras func(r chi.Router)
}

// API empacota os handlers HTTP ligados ao serviço de convites.
type API struct {
	service     domain.ConviteService
	identidades *identidade.Derivador
	stream      Stream
	adminToken  string
	corsOrigins []string
	extras      func(r chi.Router)
	validate    *validator.Validate
	logger      *slog.Logger
}

func New(service domain.ConviteService, opts Opcoes, logger *slog.Logger) *API {
	return &API{
		service:     service,
		identidades: opts.Identidades,
		stream:      opts.Stream,
		adminToken:  opts.AdminToken,
		corsOrigins: opts.CORSOrigins,
		extras:      opts.Extras,
		validate:    novoValidador(),
		logger:      logger,
	}
}

// novoValidador reporta os campos pelo nome JSON.
func novoValidador() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		nome, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if nome == "" || nome == "-" {
			return fld.Name
		}
		return nome
	})
	return v
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origens := a.corsOrigins
	if len(origens) == 0 {
		origens = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origens,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", a.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/codigos", a.listarCodigos)
		r.Post("/codigos", a.submeterCodigo)
		r.Post("/votos", a.registrarVoto)
		r.Post("/copias", a.registrarCopia)
		r.Get("/painel", a.obterPainel)
		r.Get("/eventos", a.handleStream)

		if a.adminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(a.exigirAdmin)
				r.Get("/palavras", a.listarPalavras)
				r.Post("/palavras", a.adicionarPalavra)
			})
		}
	})

	if a.extras != nil {
		a.extras(r)
	}
	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type submissaoRequest struct {
	Code          string `json:"code"`
	SubmitterName string `json:"submitterName"`
}

func (a *API) submeterCodigo(w http.ResponseWriter, r *http.Request) {
	var req submissaoRequest
	if !a.decodificar(w, r, &req) {
		return
	}

	codigo, err := a.service.Submeter(r.Context(), domain.Submissao{
		Codigo:     req.Code,
		Autor:      req.SubmitterName,
		Identidade: a.identidade(r, ""),
	})
	if err != nil {
		a.falha(w, r, err, "falha ao submeter codigo", "codigo", req.Code)
		return
	}

	a.logger.Info("codigo submetido", "codigo_id", codigo.ID)
	responderJSON(w, http.StatusCreated, codigo)
}

func (a *API) listarCodigos(w http.ResponseWriter, r *http.Request) {
	codigos, err := a.service.ListarAtivos(r.Context())
	if err != nil {
		a.falha(w, r, err, "erro ao listar codigos")
		return
	}
	if codigos == nil {
		codigos = []domain.Codigo{}
	}
	responderJSON(w, http.StatusOK, codigos)
}

type votoRequest struct {
	CodeID        string `json:"codeId" validate:"required,max=64"`
	VoteType      string `json:"voteType"`
	VoterIdentity string `json:"voterIdentity" validate:"max=64"`
}

func (a *API) registrarVoto(w http.ResponseWriter, r *http.Request) {
	var req votoRequest
	if !a.decodificar(w, r, &req) {
		return
	}

	codigo, err := a.service.AplicarVoto(
		r.Context(),
		domain.CodigoID(req.CodeID),
		domain.TipoVoto(req.VoteType),
		a.identidade(r, req.VoterIdentity),
	)
	if err != nil {
		a.falha(w, r, err, "falha ao registrar voto", "codigo_id", req.CodeID, "tipo", req.VoteType)
		return
	}

	responderJSON(w, http.StatusOK, codigo)
}

type copiaRequest struct {
	CodeID         string `json:"codeId" validate:"required,max=64"`
	CopierIdentity string `json:"copierIdentity" validate:"max=64"`
}

type copiaResponse struct {
	TotalCopies  int64 `json:"totalCopies"`
	UniqueCopies int64 `json:"uniqueCopies"`
}

func (a *API) registrarCopia(w http.ResponseWriter, r *http.Request) {
	var req copiaRequest
	if !a.decodificar(w, r, &req) {
		return
	}

	codigo, err := a.service.AplicarCopia(r.Context(), domain.CodigoID(req.CodeID), a.identidade(r, req.CopierIdentity))
	if err != nil {
		a.falha(w, r, err, "falha ao registrar copia", "codigo_id", req.CodeID)
		return
	}

	responderJSON(w, http.StatusOK, copiaResponse{
		TotalCopies:  codigo.Copias,
		UniqueCopies: codigo.CopiasUnicas,
	})
}

func (a *API) obterPainel(w http.ResponseWriter, r *http.Request) {
	painel, err := a.service.Painel(r.Context())
	if err != nil {
		a.falha(w, r, err, "erro ao montar painel")
		return
	}
	responderJSON(w, http.StatusOK, painel)
}

type palavraRequest struct {
	Word string `json:"word" validate:"required,max=64"`
}

func (a *API) listarPalavras(w http.ResponseWriter, r *http.Request) {
	palavras, err := a.service.PalavrasBloqueadas(r.Context())
	if err != nil {
		a.falha(w, r, err, "erro ao listar palavras")
		return
	}
	responderJSON(w, http.StatusOK, map[string][]string{"words": palavras})
}

func (a *API) adicionarPalavra(w http.ResponseWriter, r *http.Request) {
	var req palavraRequest
	if !a.decodificar(w, r, &req) {
		return
	}
	if err := a.service.AdicionarPalavra(r.Context(), req.Word); err != nil {
		a.falha(w, r, err, "falha ao adicionar palavra")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) exigirAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
			a.logger.Warn("acesso administrativo negado", "ip", identidade.ClientIP(r))
			responderJSON(w, http.StatusUnauthorized, erroResponse{Error: "token invalido", Kind: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) identidade(r *http.Request, informada string) string {
	if a.identidades == nil {
		return strings.TrimSpace(informada)
	}
	return a.identidades.Resolver(r, informada)
}

// decodificar lê o corpo JSON e aplica as tags de validação; responde 400 e devolve false em caso de erro.
func (a *API) decodificar(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limiteCorpo)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.logger.Warn("payload invalido", "path", r.URL.Path, "err", err)
		responderJSON(w, http.StatusBadRequest, erroResponse{Error: "payload invalido", Kind: "InvalidPayload"})
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		responderJSON(w, http.StatusBadRequest, erroValidacao(err))
		return false
	}
	return true
}

func (a *API) falha(w http.ResponseWriter, r *http.Request, err error, msg string, args ...any) {
	status := statusFromError(err)
	args = append(args, "err", err, "status", status, "request_id", middleware.GetReqID(r.Context()))
	if status >= http.StatusInternalServerError {
		a.logger.Error(msg, args...)
	} else {
		a.logger.Warn(msg, args...)
	}
	responderErro(w, err)
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
