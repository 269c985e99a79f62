package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	application "quorum/contexts/governance/ballot-service/application"
	"quorum/contexts/governance/ballot-service/ports"
)

// DeadlineWatcher emits proposal.closed exactly once per proposal after
// its deadline passes. Closing remains derived from the stored deadline;
// the watcher never writes a closed flag onto the proposal, it only
// reports the transition downstream.
type DeadlineWatcher struct {
	Proposals ports.ProposalRepository
	Outbox    ports.OutboxWriter
	Dedup     ports.EventDedupStore
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Disabled  bool
	Logger    *slog.Logger
}

func (w DeadlineWatcher) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)
	if w.Disabled {
		return nil
	}

	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}

	proposals, err := w.Proposals.ListProposals(ctx)
	if err != nil {
		logger.Error("deadline watcher list failed",
			"event", "ballot_deadline_watcher_list_failed",
			"module", "governance/ballot-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	for _, proposal := range proposals {
		if proposal.Open(now) {
			continue
		}
		// One reservation per proposal id, not per event id, and without
		// expiry: a closed proposal never reopens, so the marker must
		// outlive any dedup TTL or the close event would re-fire.
		marker := fmt.Sprintf("proposal-closed-%d", proposal.ID)
		seen, err := w.Dedup.ReserveEvent(ctx, marker, marker, time.Time{})
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		eventID, err := w.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		envelope, err := newBallotEnvelope(eventID, "proposal.closed",
			strconv.FormatUint(proposal.ID, 10), now, map[string]any{
				"proposal_id":   proposal.ID,
				"name":          proposal.Name,
				"chairman":      proposal.Chairman,
				"deadline":      proposal.Deadline.Format(time.RFC3339),
				"votes_for_yes": proposal.VotesForYes,
				"votes_for_no":  proposal.VotesForNo,
				"outcome":       string(proposal.Outcome()),
			})
		if err != nil {
			return err
		}
		if err := w.Outbox.AppendOutbox(ctx, envelope); err != nil {
			logger.Error("deadline watcher outbox append failed",
				"event", "ballot_deadline_watcher_append_failed",
				"module", "governance/ballot-service",
				"layer", "worker",
				"proposal_id", proposal.ID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("proposal close emitted",
			"event", "ballot_proposal_close_emitted",
			"module", "governance/ballot-service",
			"layer", "worker",
			"proposal_id", proposal.ID,
			"outcome", string(proposal.Outcome()),
			"seconds_past_close", -proposal.SecondsRemaining(now),
		)
	}
	return nil
}
