package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convites_submissions_total",
		Help: "Total de submissoes de codigo por resultado",
	}, []string{"result"})

	voteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convites_vote_requests_total",
		Help: "Total de votos recebidos por tipo e resultado",
	}, []string{"type", "result"})

	copyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convites_copy_requests_total",
		Help: "Total de copias registradas por resultado",
	}, []string{"result"})

	statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convites_status_transitions_total",
		Help: "Total de transicoes de status aplicadas",
	}, []string{"status"})

	activitiesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "convites_activities_processed_total",
		Help: "Total de atividades aplicadas nas estatisticas",
	}, []string{"type"})

	activityProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "convites_activity_processing_duration_seconds",
		Help:    "Tempo para aplicar uma atividade nas estatisticas",
		Buckets: prometheus.DefBuckets,
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convites_stream_clients",
		Help: "Clientes conectados ao canal de eventos",
	})
)

func ObserveSubmission(result string) {
	submissionsTotal.WithLabelValues(result).Inc()
}

func ObserveVoteRequest(tipo, result string) {
	voteRequestsTotal.WithLabelValues(tipo, result).Inc()
}

func ObserveCopyRequest(result string) {
	copyRequestsTotal.WithLabelValues(result).Inc()
}

func IncStatusTransition(status string) {
	statusTransitionsTotal.WithLabelValues(status).Inc()
}

func IncActivityProcessed(tipo string) {
	activitiesProcessedTotal.WithLabelValues(tipo).Inc()
}

func ObserveProcessingDuration(seconds float64) {
	activityProcessingDuration.Observe(seconds)
}

func StreamClientConnected() {
	streamClients.Inc()
}

func StreamClientDisconnected() {
	streamClients.Dec()
}
