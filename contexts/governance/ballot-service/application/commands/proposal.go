package commands

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "quorum/contexts/governance/ballot-service/application"
	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"
)

// CreateProposalCommand is the write-model input for proposal creation.
// Now is the caller-supplied clock reading; the zero value falls back to
// the injected Clock so HTTP traffic uses server time while tests pin it.
type CreateProposalCommand struct {
	Name            string
	DurationMinutes uint64
	Chairman        string
	Now             time.Time
}

// ProposalUseCase creates proposals and emits proposal.created through the
// outbox in the same transaction as the insert.
type ProposalUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// CreateProposal appends a proposal with zero tallies and the next
// sequential id. A zero-minute duration is legal and yields a proposal
// that is already closed at its own creation instant.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Chairman) == "" {
		logger.Warn("proposal create validation failed",
			"event", "ballot_proposal_create_validation_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"name", cmd.Name,
		)
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}

	now := resolveNow(cmd.Now, uc.Clock)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}

	var created entities.Proposal
	err = uc.Tx.InTransaction(ctx, func(tx ports.BallotTx) error {
		proposal := entities.Proposal{
			Name:      cmd.Name,
			Chairman:  strings.TrimSpace(cmd.Chairman),
			Deadline:  now.Add(time.Duration(cmd.DurationMinutes) * time.Minute),
			CreatedAt: now,
			UpdatedAt: now,
		}
		stored, err := tx.CreateProposal(ctx, proposal)
		if err != nil {
			return err
		}
		created = stored

		envelope, err := newBallotEnvelope(eventID, "proposal.created",
			strconv.FormatUint(stored.ID, 10), now, map[string]any{
				"proposal_id":      stored.ID,
				"name":             stored.Name,
				"chairman":         stored.Chairman,
				"deadline":         stored.Deadline.Format(time.RFC3339),
				"duration_minutes": cmd.DurationMinutes,
			})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	if err != nil {
		logger.Error("proposal create failed",
			"event", "ballot_proposal_create_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"name", cmd.Name,
			"chairman", strings.TrimSpace(cmd.Chairman),
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "ballot_proposal_created",
		"module", "governance/ballot-service",
		"layer", "application",
		"proposal_id", created.ID,
		"chairman", created.Chairman,
		"deadline", created.Deadline.Format(time.RFC3339),
	)
	return created, nil
}

func resolveNow(explicit time.Time, clock ports.Clock) time.Time {
	if !explicit.IsZero() {
		return explicit.UTC()
	}
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
