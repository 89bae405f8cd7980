package domain

import "errors"

// Erros de infraestrutura traduzidos pelos repositórios para que a camada de aplicação não dependa do GORM.
var (
	ErrNotFound = errors.New("registro nao encontrado")
	ErrConflict = errors.New("registro duplicado")
)

// ErrLimiteExcedido é devolvido pela antifraude quando uma identidade excede a cota da janela.
var ErrLimiteExcedido = errors.New("limite de acoes atingido")
