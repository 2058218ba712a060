package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook delivery outcomes.
const (
	DeliveryAdmitted     = "admitted"
	DeliveryDuplicate    = "duplicate"
	DeliveryBadSignature = "bad_signature"
	DeliveryFailed       = "failed"
)

// Resolution paths.
const (
	ResolutionBulk     = "bulk"
	ResolutionFallback = "fallback"
	ResolutionMiss     = "miss"
)

// PipelineMetrics records the inventory pipeline stages from webhook intake
// through rule application.
type PipelineMetrics struct {
	deliveries  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	merges      prometheus.Counter
	ruleActions *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook deliveries by outcome.",
	}, []string{"outcome"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "variant_resolutions_total",
		Help: "Variant resolution attempts by path.",
	}, []string{"path"})
	merges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_merges_total",
		Help: "Damaged inventory merge upserts applied.",
	})
	ruleActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_actions_total",
		Help: "Upstream mutations applied by the rule engine.",
	}, []string{"action"})
	reg.MustRegister(deliveries, resolutions, merges, ruleActions)
	return &PipelineMetrics{
		deliveries:  deliveries,
		resolutions: resolutions,
		merges:      merges,
		ruleActions: ruleActions,
	}
}

// IncDelivery counts one webhook delivery with the given outcome.
func (p *PipelineMetrics) IncDelivery(outcome string) {
	if p == nil || p.deliveries == nil {
		return
	}
	p.deliveries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncResolution counts one variant resolution on the given path.
func (p *PipelineMetrics) IncResolution(path string) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncMerge counts one applied merge upsert.
func (p *PipelineMetrics) IncMerge() {
	if p == nil || p.merges == nil {
		return
	}
	p.merges.Inc()
}

// IncRuleAction counts one upstream mutation, e.g. publish or redirect_create.
func (p *PipelineMetrics) IncRuleAction(action string) {
	if p == nil || p.ruleActions == nil {
		return
	}
	p.ruleActions.WithLabelValues(normalizeLabel(action)).Inc()
}
