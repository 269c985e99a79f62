package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "quorum/contexts/governance/ballot-service/application"
	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"
)

// GrantCreditsCommand adds credits to a voter, creating the record on the
// first grant. Zero is a legal no-op grant; it still establishes the
// voter's existence for later eligibility checks.
type GrantCreditsCommand struct {
	Identity string
	Amount   uint64
	Now      time.Time
}

// LedgerUseCase owns credit issuance. Debits are never exposed here; the
// only path that spends credits is the vote transaction.
type LedgerUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc LedgerUseCase) GrantCredits(ctx context.Context, cmd GrantCreditsCommand) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	identity := strings.TrimSpace(cmd.Identity)
	if identity == "" {
		logger.Warn("credit grant validation failed",
			"event", "ballot_grant_validation_failed",
			"module", "governance/ballot-service",
			"layer", "application",
		)
		return entities.Voter{}, domainerrors.ErrInvalidIdentity
	}

	now := resolveNow(cmd.Now, uc.Clock)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Voter{}, err
	}

	var granted entities.Voter
	err = uc.Tx.InTransaction(ctx, func(tx ports.BallotTx) error {
		voter, found, err := tx.GetVoter(ctx, identity)
		if err != nil {
			return err
		}
		if !found {
			voter = entities.Voter{
				Identity:  identity,
				CreatedAt: now,
			}
		}
		voter.Credits += cmd.Amount
		voter.UpdatedAt = now
		if err := tx.SaveVoter(ctx, voter); err != nil {
			return err
		}
		granted = voter

		envelope, err := newBallotEnvelope(eventID, "credits.granted", identity, now, map[string]any{
			"identity":    identity,
			"amount":      cmd.Amount,
			"balance":     voter.Credits,
			"first_grant": !found,
		})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	if err != nil {
		logger.Error("credit grant failed",
			"event", "ballot_grant_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"identity", identity,
			"amount", cmd.Amount,
			"error", err.Error(),
		)
		return entities.Voter{}, err
	}

	logger.Info("credits granted",
		"event", "ballot_credits_granted",
		"module", "governance/ballot-service",
		"layer", "application",
		"identity", identity,
		"amount", cmd.Amount,
		"balance", granted.Credits,
	)
	return granted, nil
}
