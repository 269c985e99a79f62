package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/governance/ballot-service/application"
	"quorum/contexts/governance/ballot-service/ports"
)

const (
	voteCastTopic   = "vote.cast"
	defaultTallyCG  = "ballot-service-tally-cg"
	defaultDedupTTL = 24 * time.Hour
)

// ProjectionObserver receives projection notifications for metrics.
// A nil observer is a no-op; the worker never depends on the metrics
// runtime directly.
type ProjectionObserver interface {
	VoteProjected(proposalID uint64, amount uint64, inFavor bool, elapsed time.Duration)
	DuplicateSkipped(proposalID uint64)
}

type voteCastEvent struct {
	ProposalID uint64 `json:"proposal_id"`
	Caller     string `json:"caller"`
	Amount     uint64 `json:"amount"`
	InFavor    bool   `json:"in_favor"`
}

// TallyProjector consumes vote.cast events and maintains the live tally
// cache. Consumption is at-least-once; the dedup store keeps replayed
// events from double-counting.
type TallyProjector struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Tally         ports.TallyCache
	Observer      ProjectionObserver
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (p TallyProjector) Start(ctx context.Context) error {
	logger := application.ResolveLogger(p.Logger)
	if p.Disabled {
		logger.Info("tally projector disabled by feature flag",
			"event", "ballot_tally_projector_disabled",
			"module", "governance/ballot-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(p.ConsumerGroup)
	if group == "" {
		group = defaultTallyCG
	}
	if err := p.Subscriber.Subscribe(ctx, voteCastTopic, group, p.handleVoteCast); err != nil {
		logger.Error("tally projector subscribe failed",
			"event", "ballot_tally_projector_subscribe_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"topic", voteCastTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("tally projector subscription active",
		"event", "ballot_tally_projector_started",
		"module", "governance/ballot-service",
		"layer", "worker",
		"topic", voteCastTopic,
		"consumer_group", group,
	)
	return nil
}

func (p TallyProjector) handleVoteCast(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(p.Logger)
	started := p.now()

	var payload voteCastEvent
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("tally projector decode failed",
			"event", "ballot_tally_projector_decode_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	ttl := p.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	duplicate, err := p.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), started.Add(ttl))
	if err != nil {
		return err
	}
	if duplicate {
		if p.Observer != nil {
			p.Observer.DuplicateSkipped(payload.ProposalID)
		}
		logger.Debug("tally projector skipped duplicate event",
			"event", "ballot_tally_projector_duplicate",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", payload.ProposalID,
		)
		return nil
	}

	if err := p.Tally.IncrementTally(ctx, payload.ProposalID, payload.InFavor, payload.Amount); err != nil {
		logger.Error("tally projector increment failed",
			"event", "ballot_tally_projector_increment_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"event_id", event.EventID,
			"proposal_id", payload.ProposalID,
			"error", err.Error(),
		)
		return err
	}

	if p.Observer != nil {
		p.Observer.VoteProjected(payload.ProposalID, payload.Amount, payload.InFavor, p.now().Sub(started))
	}
	logger.Info("tally projected",
		"event", "ballot_tally_projected",
		"module", "governance/ballot-service",
		"layer", "worker",
		"event_id", event.EventID,
		"proposal_id", payload.ProposalID,
		"amount", payload.Amount,
		"in_favor", payload.InFavor,
	)
	return nil
}

func (p TallyProjector) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
