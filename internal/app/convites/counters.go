package convites

const (
	CounterKeySubmissoes = "total:submissoes"
	CounterKeyVotos      = "total:votos"
	CounterKeyCopias     = "total:copias"
)

func counterKeysTotais() []string {
	return []string{CounterKeySubmissoes, CounterKeyVotos, CounterKeyCopias}
}
