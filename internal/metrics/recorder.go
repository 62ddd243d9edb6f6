package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

const namespace = "chatmem"

// Recorder exports session activity as Prometheus series.
type Recorder struct {
	turns          *prometheus.CounterVec
	evictions      prometheus.Counter
	evictedTokens  prometheus.Counter
	transcriptSize prometheus.Gauge
	available      prometheus.Gauge
	modelTokens    *prometheus.CounterVec
	turnSeconds    prometheus.Histogram
}

var _ session.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns finished, by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "History entries evicted to fit the token budget.",
		}),
		evictedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_tokens_total",
			Help:      "Estimated tokens removed by eviction.",
		}),
		transcriptSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcript_tokens",
			Help:      "Estimated tokens in the current transcript.",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens_available",
			Help:      "Effective limit minus transcript tokens.",
		}),
		modelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens reported by the model backend, by kind.",
		}, []string{"kind"}),
		turnSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of finished turns.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		r.turns, r.evictions, r.evictedTokens, r.transcriptSize, r.available, r.modelTokens, r.turnSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Pre-create label sets so every outcome reports 0 before it first happens.
	for _, o := range []session.Outcome{session.OutcomeCommitted, session.OutcomeRolledBack, session.OutcomeRejected} {
		r.turns.WithLabelValues(string(o))
	}
	return r, nil
}

func (r *Recorder) SessionStarted(st session.Stats, _ error) { r.setSize(st) }

func (r *Recorder) EntryEvicted(_ context.Context, _ memory.Entry, tokens int) {
	r.evictions.Inc()
	r.evictedTokens.Add(float64(tokens))
}

func (r *Recorder) TurnFinished(_ context.Context, rep session.TurnReport) {
	r.turns.WithLabelValues(string(rep.Outcome)).Inc()
	r.turnSeconds.Observe(rep.Duration.Seconds())
	if rep.Outcome == session.OutcomeCommitted {
		r.modelTokens.WithLabelValues("prompt").Add(float64(rep.Reply.Usage.PromptTokens))
		r.modelTokens.WithLabelValues("completion").Add(float64(rep.Reply.Usage.CompletionTokens))
	}
	r.setSize(rep.Stats)
}

func (r *Recorder) HistoryCleared(st session.Stats) { r.setSize(st) }

func (r *Recorder) setSize(st session.Stats) {
	r.transcriptSize.Set(float64(st.TokenCount))
	r.available.Set(float64(st.TokensAvailable))
}
