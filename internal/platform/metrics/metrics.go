package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BallotMetrics instruments the vote path and the tally projection.
// Registration happens once inside the constructor via promauto.
type BallotMetrics struct {
	ProposalsCreated prometheus.Counter
	VotesCast        *prometheus.CounterVec
	VotesRejected    *prometheus.CounterVec
	VotesProjected   *prometheus.CounterVec
	VotesDuplicate   *prometheus.CounterVec
	ProjectionTime   prometheus.Histogram
}

func NewBallotMetrics(namespace string, subsystem string) *BallotMetrics {
	return &BallotMetrics{
		ProposalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "proposals_created_total",
			Help:      "Total number of proposals created",
		}),
		VotesCast: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "votes_cast_total",
			Help:      "Total number of successful votes by proposal",
		}, []string{"proposal_id"}),
		VotesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "votes_rejected_total",
			Help:      "Total number of rejected votes by failure reason",
		}, []string{"reason"}),
		VotesProjected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "votes_projected_total",
			Help:      "Total number of vote events applied to the tally cache",
		}, []string{"proposal_id"}),
		VotesDuplicate: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "votes_duplicate_total",
			Help:      "Total number of duplicate vote events skipped",
		}, []string{"proposal_id"}),
		ProjectionTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "vote_projection_time_seconds",
			Help:      "Histogram of tally projection handling times",
			Buckets:   prometheus.LinearBuckets(0.001, 0.001, 10),
		}),
	}
}

// VoteProjected and DuplicateSkipped satisfy the tally projector's
// observer hook.
func (m *BallotMetrics) VoteProjected(proposalID uint64, _ uint64, _ bool, elapsed time.Duration) {
	m.VotesProjected.WithLabelValues(formatProposalID(proposalID)).Inc()
	m.ProjectionTime.Observe(elapsed.Seconds())
}

func (m *BallotMetrics) DuplicateSkipped(proposalID uint64) {
	m.VotesDuplicate.WithLabelValues(formatProposalID(proposalID)).Inc()
}

func formatProposalID(proposalID uint64) string {
	return strconv.FormatUint(proposalID, 10)
}
