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

// CastVoteCommand spends the caller's credits on one proposal's tally.
type CastVoteCommand struct {
	ProposalID uint64
	Amount     uint64
	InFavor    bool
	Caller     string
	Now        time.Time
}

// CastVoteResult returns the post-vote state of both touched records.
type CastVoteResult struct {
	Proposal entities.Proposal
	Voter    entities.Voter
}

// VoteUseCase executes the vote sequence — openness check, credit
// check-and-debit, tally increment — as one transaction. Two concurrent
// votes by the same voter can never both observe sufficient credits, and
// a vote can never land after the deadline relative to the instant the
// openness check used.
type VoteUseCase struct {
	Tx     ports.Transactor
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		logger.Warn("vote validation failed",
			"event", "ballot_vote_validation_failed",
			"module", "governance/ballot-service",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
		)
		return CastVoteResult{}, domainerrors.ErrInvalidIdentity
	}

	now := resolveNow(cmd.Now, uc.Clock)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}

	var result CastVoteResult
	err = uc.Tx.InTransaction(ctx, func(tx ports.BallotTx) error {
		proposal, err := tx.GetProposal(ctx, cmd.ProposalID)
		if err != nil {
			return err
		}
		if !proposal.Open(now) {
			return domainerrors.ErrProposalClosed
		}

		voter, found, err := tx.GetVoter(ctx, caller)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrVoterNotFound
		}
		if voter.Credits < cmd.Amount {
			return domainerrors.ErrInsufficientCredits
		}

		voter.Credits -= cmd.Amount
		voter.UpdatedAt = now
		if cmd.InFavor {
			proposal.VotesForYes += cmd.Amount
		} else {
			proposal.VotesForNo += cmd.Amount
		}
		proposal.UpdatedAt = now

		if err := tx.SaveVoter(ctx, voter); err != nil {
			return err
		}
		if err := tx.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		result = CastVoteResult{Proposal: proposal, Voter: voter}

		envelope, err := newBallotEnvelope(eventID, "vote.cast",
			strconv.FormatUint(proposal.ID, 10), now, map[string]any{
				"proposal_id":   proposal.ID,
				"caller":        caller,
				"amount":        cmd.Amount,
				"in_favor":      cmd.InFavor,
				"votes_for_yes": proposal.VotesForYes,
				"votes_for_no":  proposal.VotesForNo,
			})
		if err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, envelope)
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "ballot_vote_rejected",
			"module", "governance/ballot-service",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"caller", caller,
			"amount", cmd.Amount,
			"error", err.Error(),
		)
		return CastVoteResult{}, err
	}

	logger.Info("vote cast",
		"event", "ballot_vote_cast",
		"module", "governance/ballot-service",
		"layer", "application",
		"proposal_id", result.Proposal.ID,
		"caller", caller,
		"amount", cmd.Amount,
		"in_favor", cmd.InFavor,
		"remaining_credits", result.Voter.Credits,
	)
	return result, nil
}
