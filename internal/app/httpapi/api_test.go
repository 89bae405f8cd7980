package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/mural-convites/internal/app/convites"
	"github.com/marcelojr/mural-convites/internal/app/identidade"
	"github.com/marcelojr/mural-convites/internal/domain"
	"github.com/marcelojr/mural-convites/internal/platform/clock"
)

// MockConviteService implementa domain.ConviteService para os testes dos handlers.
type MockConviteService struct {
	mock.Mock
}

func (m *MockConviteService) Submeter(ctx context.Context, s domain.Submissao) (domain.Codigo, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domain.Codigo), args.Error(1)
}

func (m *MockConviteService) AplicarVoto(ctx context.Context, id domain.CodigoID, tipo domain.TipoVoto, identidade string) (domain.Codigo, error) {
	args := m.Called(ctx, id, tipo, identidade)
	return args.Get(0).(domain.Codigo), args.Error(1)
}

func (m *MockConviteService) AplicarCopia(ctx context.Context, id domain.CodigoID, identidade string) (domain.Codigo, error) {
	args := m.Called(ctx, id, identidade)
	return args.Get(0).(domain.Codigo), args.Error(1)
}

func (m *MockConviteService) ListarAtivos(ctx context.Context) ([]domain.Codigo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Codigo), args.Error(1)
}

func (m *MockConviteService) Painel(ctx context.Context) (domain.Painel, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Painel), args.Error(1)
}

func (m *MockConviteService) PalavrasBloqueadas(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockConviteService) AdicionarPalavra(ctx context.Context, palavra string) error {
	args := m.Called(ctx, palavra)
	return args.Error(0)
}

const tokenAdmin = "segredo-admin"

var instanteFixo = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

// setupAPI cria o router com serviço mockado e derivação de identidade determinística.
func setupAPI(t *testing.T, stream Stream) (http.Handler, *MockConviteService, *identidade.Derivador) {
	mockService := new(MockConviteService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))
	derivador := identidade.NewDerivador("segredo", clock.NewFixo(instanteFixo))

	api := New(mockService, Opcoes{
		Identidades: derivador,
		Stream:      stream,
		AdminToken:  tokenAdmin,
	}, logger)

	t.Cleanup(func() {
		mockService.AssertExpectations(t)
	})

	return api.Routes(), mockService, derivador
}

func executar(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:4321"
	req.Header.Set("User-Agent", "teste/1.0")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErro(t *testing.T, w *httptest.ResponseRecorder) erroResponse {
	t.Helper()
	var body erroResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

// === GET /healthz ===

func TestHandleHealthz_QuandoSolicitado_DeveRetornar200OK(t *testing.T) {
	h, _, _ := setupAPI(t, nil)

	w := executar(h, "GET", "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

// === POST /api/codigos ===

func TestSubmeterCodigo_QuandoValido_DeveRetornar201(t *testing.T) {
	h, mockService, derivador := setupAPI(t, nil)

	esperado := domain.Codigo{ID: "01HZX0000000000000000000AA", Codigo: "Hk7m2", Status: domain.StatusAtivo}
	identidadeEsperada := derivador.Derivar("192.0.2.10", "teste/1.0")
	mockService.On("Submeter", mock.Anything, domain.Submissao{
		Codigo:     "Hk7m2",
		Autor:      "Ana",
		Identidade: identidadeEsperada,
	}).Return(esperado, nil)

	w := executar(h, "POST", "/api/codigos", `{"code":"Hk7m2","submitterName":"Ana"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got domain.Codigo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, esperado.ID, got.ID)
	assert.Equal(t, "Hk7m2", got.Codigo)
}

func TestSubmeterCodigo_QuandoConteudoRejeitado_DeveRetornar400ComTermos(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Submeter", mock.Anything, mock.Anything).
		Return(domain.Codigo{}, &convites.RejeicaoError{Motivo: "palavra bloqueada no codigo", Termos: []string{"test"}})

	w := executar(h, "POST", "/api/codigos", `{"code":"test99"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErro(t, w)
	assert.Equal(t, "RejectedContent", body.Kind)
	assert.Equal(t, []string{"test"}, body.Terms)
}

func TestSubmeterCodigo_QuandoFormatoInvalido_DeveRetornar400(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Submeter", mock.Anything, mock.Anything).
		Return(domain.Codigo{}, fmt.Errorf("%w: use letras", convites.ErrFormatoInvalido))

	w := executar(h, "POST", "/api/codigos", `{"code":"a-b"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidFormat", decodeErro(t, w).Kind)
}

func TestSubmeterCodigo_QuandoDuplicado_DeveRetornar409ComCodigo(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	existente := domain.Codigo{ID: "01HZX0000000000000000000AA", Codigo: "HK7M2"}
	mockService.On("Submeter", mock.Anything, mock.Anything).
		Return(domain.Codigo{}, &convites.ConflitoError{Codigo: existente})

	w := executar(h, "POST", "/api/codigos", `{"code":"hk7m2"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeErro(t, w)
	assert.Equal(t, "Conflict", body.Kind)
	require.NotNil(t, body.Code)
	assert.Equal(t, existente.ID, body.Code.ID)
}

func TestSubmeterCodigo_QuandoPayloadInvalido_DeveRetornar400(t *testing.T) {
	h, _, _ := setupAPI(t, nil)

	w := executar(h, "POST", "/api/codigos", `{"code":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidPayload", decodeErro(t, w).Kind)
}

func TestSubmeterCodigo_QuandoRateLimitExcedido_DeveRetornar429(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Submeter", mock.Anything, mock.Anything).Return(domain.Codigo{}, domain.ErrLimiteExcedido)

	w := executar(h, "POST", "/api/codigos", `{"code":"Hk7m2"}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RateLimited", decodeErro(t, w).Kind)
}

func TestSubmeterCodigo_QuandoArmazenamentoFalha_DeveRetornar500Opaco(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Submeter", mock.Anything, mock.Anything).
		Return(domain.Codigo{}, fmt.Errorf("%w: criar codigo: %w", convites.ErrArmazenamentoIndisponivel, errors.New("dial tcp 10.0.0.5:5432")))

	w := executar(h, "POST", "/api/codigos", `{"code":"Hk7m2"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeErro(t, w)
	assert.Equal(t, "StorageUnavailable", body.Kind)
	assert.NotContains(t, body.Error, "10.0.0.5")
}

// === GET /api/codigos ===

func TestListarCodigos_QuandoExistemAtivos_DeveRetornarLista(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("ListarAtivos", mock.Anything).Return([]domain.Codigo{
		{ID: "B", Codigo: "Pq8r5"},
		{ID: "A", Codigo: "Hk7m2"},
	}, nil)

	w := executar(h, "GET", "/api/codigos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var got []domain.Codigo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 2)
	assert.Equal(t, "Pq8r5", got[0].Codigo)
}

func TestListarCodigos_QuandoVazio_DeveRetornarArrayVazio(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("ListarAtivos", mock.Anything).Return([]domain.Codigo(nil), nil)

	w := executar(h, "GET", "/api/codigos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

// === POST /api/votos ===

func TestRegistrarVoto_QuandoIdentidadeInformada_DeveUsarAInformada(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	atualizado := domain.Codigo{ID: "C1", Votos: domain.Votos{Funcionou: 1, UnicosFuncionou: 1}}
	mockService.On("AplicarVoto", mock.Anything, domain.CodigoID("C1"), domain.VotoFuncionou, "cliente-1").
		Return(atualizado, nil)

	w := executar(h, "POST", "/api/votos", `{"codeId":"C1","voteType":"worked","voterIdentity":"cliente-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var got domain.Codigo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, int64(1), got.Votos.UnicosFuncionou)
}

func TestRegistrarVoto_SemIdentidade_DeveDerivarDoXForwardedFor(t *testing.T) {
	h, mockService, derivador := setupAPI(t, nil)

	esperada := derivador.Derivar("203.0.113.7", "teste/1.0")
	mockService.On("AplicarVoto", mock.Anything, domain.CodigoID("C1"), domain.VotoNaoFuncionou, esperada).
		Return(domain.Codigo{ID: "C1"}, nil)

	w := executar(h, "POST", "/api/votos", `{"codeId":"C1","voteType":"didntWork"}`,
		"X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegistrarVoto_QuandoTipoInvalido_DeveRetornar400(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("AplicarVoto", mock.Anything, domain.CodigoID("C1"), domain.TipoVoto("maybe"), mock.Anything).
		Return(domain.Codigo{}, convites.ErrTipoVotoInvalido)

	w := executar(h, "POST", "/api/votos", `{"codeId":"C1","voteType":"maybe"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidVoteType", decodeErro(t, w).Kind)
}

func TestRegistrarVoto_QuandoCodigoNaoEncontrado_DeveRetornar404(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("AplicarVoto", mock.Anything, domain.CodigoID("nada"), domain.VotoFuncionou, mock.Anything).
		Return(domain.Codigo{}, convites.ErrCodigoNaoEncontrado)

	w := executar(h, "POST", "/api/votos", `{"codeId":"nada","voteType":"worked"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", decodeErro(t, w).Kind)
}

func TestRegistrarVoto_QuandoSemCodeId_DeveRetornar400ComCampo(t *testing.T) {
	h, _, _ := setupAPI(t, nil)

	w := executar(h, "POST", "/api/votos", `{"voteType":"worked"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErro(t, w)
	assert.Equal(t, "InvalidPayload", body.Kind)
	assert.Equal(t, "required", body.Fields["codeId"])
}

func TestRegistrarVoto_QuandoMetodoNaoSuportado_DeveRetornar405(t *testing.T) {
	h, _, _ := setupAPI(t, nil)

	w := executar(h, "GET", "/api/votos", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// === POST /api/copias ===

func TestRegistrarCopia_DeveRetornarTotais(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("AplicarCopia", mock.Anything, domain.CodigoID("C1"), "cliente-9").
		Return(domain.Codigo{ID: "C1", Copias: 5, CopiasUnicas: 3}, nil)

	w := executar(h, "POST", "/api/copias", `{"codeId":"C1","copierIdentity":"cliente-9"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalCopies":5,"uniqueCopies":3}`, w.Body.String())
}

func TestRegistrarCopia_QuandoCodigoNaoEncontrado_DeveRetornar404(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("AplicarCopia", mock.Anything, domain.CodigoID("nada"), mock.Anything).
		Return(domain.Codigo{}, convites.ErrCodigoNaoEncontrado)

	w := executar(h, "POST", "/api/copias", `{"codeId":"nada"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// === GET /api/painel ===

func TestObterPainel_DeveRetornarAgregado(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Painel", mock.Anything).Return(domain.Painel{
		Contagens: domain.ContagemStatus{Ativos: 2, Usados: 1, Total: 3},
		Totais:    domain.Totais{Submissoes: 3, Votos: 10, Copias: 4},
		Dias:      []domain.EstatisticaDiaria{{Dia: "2026-04-02", Votos: 10}},
	}, nil)

	w := executar(h, "GET", "/api/painel", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var got domain.Painel
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, int64(3), got.Contagens.Total)
	assert.Equal(t, int64(10), got.Totais.Votos)
	assert.Len(t, got.Dias, 1)
}

func TestObterPainel_QuandoServicoFalha_DeveRetornar500(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("Painel", mock.Anything).Return(domain.Painel{}, convites.ErrArmazenamentoIndisponivel)

	w := executar(h, "GET", "/api/painel", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// === /api/admin/palavras ===

func TestAdminPalavras_SemToken_DeveRetornar401(t *testing.T) {
	h, _, _ := setupAPI(t, nil)

	w := executar(h, "GET", "/api/admin/palavras", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = executar(h, "GET", "/api/admin/palavras", "", "Authorization", "Bearer errado")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminPalavras_ComToken_DeveListarEAdicionar(t *testing.T) {
	h, mockService, _ := setupAPI(t, nil)

	mockService.On("PalavrasBloqueadas", mock.Anything).Return([]string{"spam"}, nil)
	mockService.On("AdicionarPalavra", mock.Anything, "golpe").Return(nil)

	w := executar(h, "GET", "/api/admin/palavras", "", "Authorization", "Bearer "+tokenAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"words":["spam"]}`, w.Body.String())

	w = executar(h, "POST", "/api/admin/palavras", `{"word":"golpe"}`, "Authorization", "Bearer "+tokenAdmin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminPalavras_SemTokenConfigurado_RotaNaoExiste(t *testing.T) {
	mockService := new(MockConviteService)
	api := New(mockService, Opcoes{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	w := executar(api.Routes(), "GET", "/api/admin/palavras", "", "Authorization", "Bearer ")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
